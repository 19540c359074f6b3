package agent

import (
	"fmt"
	"strings"
)

// fenced turns ''' into markdown code fences so prompts can live in raw
// string literals.
func fenced(s string) string {
	return strings.ReplaceAll(s, "'''", "```")
}

const codeTemplate = `<CodeTemplate>
'''javascript
export async function [functionName]() {
  try {
    await [hostName].run(async (context) => {
      [Code]
    })
  } catch (error) {
    console.error(error);
  }
}
'''
</CodeTemplate>`

const codeStructureHead = `<CodeStructure>
- There must be one and only one main method in one code snippet. The main method must strictly follow the structure <CodeTemplate>.
- The main method must have a meaningful [functionName], a correct [hostName] of Word, Excel or Powerpoint, and runnable [Code] to address the user's ask.
- The main method should not have any passed in parameters. The necessary parameters should be defined inside the method.
- The main method for each object should contain loading properties, get and set properties and some method calls. All the properties, method calls should be existing on this object or related with it.
- All variable declarations MUST be in the body of the method.`

const codeStructureTail = `- Except for the main method, you can have other helper methods if necessary. All helper methods must be properly called in the main method.
- No more code should be generated except for the methods.
</CodeStructure>`

const excelRangeSample = `<ExcelSample>
'''javascript
sheet.getCell(0, 0).values = [[0]]; // Assign a 1*1 array to a single cell.
sheet.getRange("A1:B3").values = [['Date', 'Close Price'], ['2024-01-01', 100], ['2024-01-02', 110]]; // Assign a 3*2 array to a 3*2 range.
'''
</ExcelSample>`

const excelStockSample = `<ExcelSample>
User: fetch stock data and import into Excel.
Assistant:
'''javascript
// 1. fetch data
const symbol = 'MSFT';
const key = 'YOUR_API';
const response = await fetch("https://www.alphavantage.co/query?function=TIME_SERIES_DAILY&symbol=" + symbol + "&apikey=" + key);
const data = await response.json();

// 2. parse data
const stockData = data['Time Series (Daily)'];
const dates = Object.keys(stockData);
const closePrices = Object.values(stockData).map(entry => entry['4. close']);
let result = dates.map((item, index) => {
  return [item, closePrices[index]];
});

// 3. Import parsed data into Excel
const worksheet = context.workbook.worksheets.getActiveWorksheet();
const range = worksheet.getRange("A1:B" + result.length);
range.values = result;
'''
</ExcelSample>`

const excelChartSample = `<ExcelSample>
'''javascript
// range is an existing variable of the type Excel.Range
const chart = sheet.charts.add(Excel.ChartType.line, range, Excel.ChartSeriesBy.auto);
chart.title.text = 'Stock Trend';
chart.title.format.font.bold = true;
'''
</ExcelSample>`

const askCreateProject = "To run the code, you need to create an add-in project. Do you want to create a project in the current workspace?"

// stepByStepPrompt answers a high-level ask with features, one code sample
// and an offer to create a project. Prompts mentioning alphavantage get the
// full stock sample.
func stepByStepPrompt(userPrompt string) string {
	sample := excelRangeSample
	if strings.Contains(userPrompt, "alpha") {
		sample = excelStockSample
	}
	return fenced(`I want you act as an expert in Office JavaScript add-in development area. All user asks related to Word, Excel or PowerPoint should be handled using Office JavaScript API. Follow the <Instructions>.

<Instructions>
- First, you should give a positive reply that you understand the user's ask and tell user the task can be done by building an Office JavaScript add-in.
- Second, you should summarize 2-3 features users need to implement to finish their task. Each feature should be described in only a few words.
- Then, generate a code sample following <CodeStructure> for users to show how to finish the user task. If an API key is needed, remember to notify the user.
- Next, explain the code sample you just generated.
- At the end of your response, you should ask user '` + askCreateProject + `'.
</Instructions>

` + codeStructureHead + `
- When using REST API, you should use fetch.
- Don't include any 'npm install' command in your response.
- When using Excel JavaScript API to set a [value] to range, you need to first clearly figure out the dimension of [value]. And then must make sure the dimension of the range must align with the dimension [value]. Take <ExcelSample> as an example.
` + codeStructureTail + `
- The returned method should be well-implemented without any placeholder comments or fake functions.

` + codeTemplate + `

` + sample)
}

// Intentions recognised by intentionPrompt.
const (
	intentStepByStep = "Ask for step-by-step guidance"
	intentSampleCode = "Show sample code"
	intentCreate     = "Create a new project"
	intentPublish    = "Publish add-in"
	intentFix        = "Fix the code"
)

const intentionPrompt = `Categorize the user intention into one of the 6 intentions below:
1. "Ask for step-by-step guidance"
  For example:
  "I want to import stock data into Excel and do analysis. Tell me what to do."
  "I want to import NBA data into Excel and do analysis."
2. "Show sample code"
  For example:
  "Format the table."
  "Generate a line chart."
3. "Create a new project"
  For example:
  "Create the project in the current workspace."
4. "Publish add-in"
  For example:
  "How can I distribute the add-in to more users?"
5. "Fix the code"
  For example:
  "Fix the error"
  "I have an error:"
6. "Others"
Return the string of the intention only.`

// generateCodePrompt continues from lastCode. When the project already
// exists the reply is chart oriented, otherwise it ends by offering to
// create one.
func generateCodePrompt(lastCode string, projectExists bool) string {
	var sb strings.Builder
	sb.WriteString("I want you to generate Office JavaScript code following <Instructions> to resolve the user's ask.\n\n<Instructions>\n")
	if strings.TrimSpace(lastCode) != "" {
		sb.WriteString("- You must generate code based on the <PreviousCode> and follow <CodeStructure>.\n")
	} else {
		sb.WriteString("- You should generate a new code snippet following <CodeStructure>.\n")
	}
	sb.WriteString("- Explain the code sample you just generated.\n")
	if !projectExists {
		sb.WriteString("- At the end of your response, you should ask user '" + askCreateProject + "'.\n")
	}
	sb.WriteString("</Instructions>\n\n")

	sb.WriteString(codeStructureHead + "\n")
	if projectExists {
		sb.WriteString("- When using REST API, you should use fetch. And Generate the code to fetch stock data from alphavantage.\n")
		sb.WriteString("- Don't include any 'npm install' command in your response.\n")
		sb.WriteString("- When using Excel JavaScript API to generate some code. Take <ExcelSample> as an example.\n")
	} else {
		sb.WriteString("- When using REST API, you should use fetch.\n")
		sb.WriteString("- Don't include any 'npm install' command in your response.\n")
		sb.WriteString("- When using Excel JavaScript API to set the cell value, you should notice the dimension of the cell must be aligned with the dimension input array. Thus, you should figure out the dimension of the array first, and get the range of the cells. Take <ExcelSample> as an example.\n")
	}
	sb.WriteString(codeStructureTail + "\n\n" + codeTemplate + "\n\n")

	if projectExists {
		sb.WriteString(excelChartSample)
	} else {
		sb.WriteString(excelStockSample)
	}
	if strings.TrimSpace(lastCode) != "" {
		sb.WriteString("\n\n<PreviousCode>\n'''javascript\n" + strings.Trim(lastCode, "\n") + "\n'''\n</PreviousCode>")
	}
	return fenced(sb.String())
}

const inspirePrompt1 = `As an Office JavaScript Add-in expert, give an inspiration to the user what's the next step they can do in LESS than 10 words based on the user's request.
- If the data request is format the table, suggest the user to generate a chart.
- If the user request is generate a chart, suggest the user to add data labels to the chart.`

const inspirePrompt2 = `As an Office JavaScript Add-in expert, give an inspiration to the user what's the next step they can do in LESS than 10 words based on the user's request.
- If the data request is format the table, suggest the user to format the data in another style.
- If the user request is generate a chart, suggest the user to format the chart.`

const publishAddInPrompt = `I want you to provide all documentations and steps to publish the Office add-in to the store and marketplace.`

const fixCodePrompt = `The user has asked for help to fix the code. You should provide the user with the correct code to fix the issue using your knowledge in Office JavaScript APIs and Office Add-ins.`

const consultantPrompt = `You are an expert in Office JavaScript Add-in. Your job is to help the user learn about how they can use Office Add-in and Office JavaScript APIs to solve a problem or accomplish a task. Do not suggest using any other tools other than what has been previously mentioned. Assume the user is only interested in using Office Add-in. Finally, do not overwhelm the user with too much information.`

// generateProjectPrompt asks for the PLATFORM/TYPE/APISET/SUMMARY JSON of a
// new add-in. objects is the JSON catalog of API objects to choose from.
func generateProjectPrompt(objects string) string {
	return `# Role
I want you act as an expert in Office JavaScript add-in development area. You are also an advisor for Office add-in developers.

# Instructions
- Given the Office JavaScript add-in developer's request, please follow below to help determine the information about generating an JavaScript add-in project.
- You should interpret the intention of developer's request as an ask to generate an Office JavaScript add-in project. And polish user input into some sentences if necessary.
- You should go through the following steps silently, and only reply to user with a JSON result in each step. Do not explain why for your answer.

- Suggest a platform for the add-in project. There are 3 options: Word, Excel, PowerPoint. If you can't determine, just say All.
- You should base on your understanding of developer intent and the capabilities of Word, Excel, PowerPoint to make the suggestion.
- Remember it as "PLATFORM".

- Suggest an add-in type. You have 3 options: taskpane, content, custom function. You should notice Word doesn't have content type, and only Excel has custom function type. Remember it as "TYPE".

- You should then base on the "PLATFORM" information and add-in developer asks to suggest one or a set of specific Office JavaScript API objects that are related.
- You should analyze the API objects typical user cases or capabilities of their related UI features to suggest the most relevant ones.
- The suggested API objects should not be too general such as "Document", "Workbook", "Presentation".
- The suggested API objects should be from the list inside "API objects list".
- The "API objects list" is a JSON object with a list of Office JavaScript API objects and their descriptions. The "API objects list" is as follows: ` + objects + `
- You should give at most 3 relevant objects. Remember it as "APISET".

- Provide some detailed summary about why you make the suggestions in above steps. Remember it as "SUMMARY".`
}

// generateAPICallsPrompt asks for one exported method per API object,
// grounded on apiList.
func generateAPICallsPrompt(apiList string) string {
	return `# Role
I want you act as an expert in Office JavaScript add-in development area. You are also an advisor for Office add-in developers.

# Instructions
- You should help generate some Office JavaScript API call examples based on user request.
- The generated method must start with 'export async function' keyword.
- The generated method should contain a meaningful function name and a runnable code snippet with its own context.
- The generated method should have a try catch block to handle the exception.
- Each generated method should contain Word.run, Excel.run or PowerPoint.run logic.
- Each generated method should not have any passed in parameters. The necessary parameters should be defined inside the method.
- The generated method for each object should contain loading properties, get and set properties and some method calls. All the properties, method calls should be existing on this object or related with it.
- Remember to strictly reference the "API list" to generate the code. The "API list" is as follows: ` + apiList + `.
- If the userPrompt includes add or insert keywords, your generated code should contain insert or add method calls.`
}

const describeProjectPrompt = `You are an advisor for Teams App developers. You need to describe the project based on name and description field of user's JSON content. You should control the output between 50 and 80 words.`

const introduceProjectPrompt = `You are an advisor for Teams App developers. You need to describe the project based on name and description field of user's JSON content. You should control the output between 30 and 40 words.`

func fixErrorPrompt(errorMessage, errorCode string) string {
	return fmt.Sprintf(`# Role
I want you act as an expert in Office JavaScript add-in development area. You are also an advisor for Office add-in developers.

# Instructions
- There is an error message: %s in the code %s. Please give out the right code to fix the error.`, errorMessage, errorCode)
}

const nextStepPrompt = `You are an advisor for Microsoft 365 app developers. Based on the conversation so far, suggest up to three concrete next steps the developer could ask you for.
Reply with one suggestion per line, each less than 10 words, without numbering or explanations.`

const askOfficeAddinGatePrompt = `Let us start over and forget my previous input for you, as well as your answer to me. You are an expert in Office JavaScript Add-ins. The Office add-ins platform is a rich framework for building add-ins for Office applications that extend Office applications and interact with content in Office documents. With Office Add-ins, you can use familiar web technologies such as HTML, CSS, and JavaScript to extend and interact with Outlook, Excel, Word, PowerPoint, OneNote, and Project. Your solution can run in Office across multiple platforms, including Windows, Mac, iPad, and in a browser. Check the intention of the user and see if the ask is about Office JavaScript Add-ins. Summarize the result into "Yes" or "No", then put that with your confident score (as xx%), response strictly following this format: [Your confidence score] : [Your summary]. No need to add any explanations for your answer.`
