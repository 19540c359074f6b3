package gallery

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

var exportedFuncRe = regexp.MustCompile(`export\s+(?:async\s+)?function\s+([A-Za-z_$][\w$]*)\s*\(`)

// ExportedFunctions returns the names of exported functions in code, in
// order of appearance.
func ExportedFunctions(code string) []string {
	var out []string
	seen := map[string]bool{}
	for _, m := range exportedFuncRe.FindAllStringSubmatch(code, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			out = append(out, m[1])
		}
	}
	return out
}

const buttonTemplate = `        <div role="button" id="%s" class="ms-welcome__action ms-Button ms-Button--hero ms-font-xl">
            <span class="ms-Button-label">%s</span>
        </div>
`

// ModifyFile wires generated code into an add-in project at folder:
// the code is appended to src/taskpane/taskpane.ts (or .js), every exported
// function gets a button in taskpane.html and an onclick registration.
// Functions already wired are left alone.
func ModifyFile(folder, code string) error {
	if strings.TrimSpace(code) == "" {
		return nil
	}
	dir := filepath.Join(folder, "src", "taskpane")

	script := filepath.Join(dir, "taskpane.ts")
	if _, err := os.Stat(script); err != nil {
		script = filepath.Join(dir, "taskpane.js")
	}
	src, err := os.ReadFile(script)
	if err != nil {
		return fmt.Errorf("read taskpane script: %w", err)
	}

	funcs := ExportedFunctions(code)
	updated := string(src)
	if !strings.Contains(updated, strings.TrimSpace(code)) {
		updated = strings.TrimRight(updated, "\n") + "\n\n" + strings.Trim(code, "\n") + "\n"
	}
	updated = registerHandlers(updated, funcs)
	if err := os.WriteFile(script, []byte(updated), 0o644); err != nil {
		return fmt.Errorf("write taskpane script: %w", err)
	}

	htmlPath := filepath.Join(dir, "taskpane.html")
	html, err := os.ReadFile(htmlPath)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Debug("no taskpane.html, skipping buttons", "folder", folder)
			return nil
		}
		return fmt.Errorf("read taskpane html: %w", err)
	}
	if err := os.WriteFile(htmlPath, []byte(addButtons(string(html), funcs)), 0o644); err != nil {
		return fmt.Errorf("write taskpane html: %w", err)
	}
	return nil
}

func registerHandlers(src string, funcs []string) string {
	var lines []string
	for _, fn := range funcs {
		line := fmt.Sprintf("document.getElementById(%q).onclick = %s;", fn, fn)
		if !strings.Contains(src, line) {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return src
	}

	anchor := `document.getElementById("run").onclick = run;`
	if i := strings.Index(src, anchor); i >= 0 {
		indent := lineIndent(src, i)
		insert := ""
		for _, l := range lines {
			insert += "\n" + indent + l
		}
		at := i + len(anchor)
		return src[:at] + insert + src[at:]
	}

	block := "\nOffice.onReady(() => {\n"
	for _, l := range lines {
		block += "  " + l + "\n"
	}
	block += "});\n"
	return src + block
}

func lineIndent(s string, pos int) string {
	start := strings.LastIndex(s[:pos], "\n") + 1
	return s[start:pos]
}

func addButtons(html string, funcs []string) string {
	var sb strings.Builder
	for _, fn := range funcs {
		if strings.Contains(html, fmt.Sprintf("id=%q", fn)) {
			continue
		}
		fmt.Fprintf(&sb, buttonTemplate, fn, ButtonLabel(fn))
	}
	if sb.Len() == 0 {
		return html
	}
	for _, closing := range []string{"</main>", "</body>"} {
		if i := strings.LastIndex(html, closing); i >= 0 {
			return html[:i] + sb.String() + html[i:]
		}
	}
	return html + sb.String()
}

// ButtonLabel turns a function name into a label: insertTable -> Insert Table.
func ButtonLabel(fn string) string {
	var sb strings.Builder
	for i, r := range fn {
		switch {
		case i == 0:
			sb.WriteRune(unicode.ToUpper(r))
		case unicode.IsUpper(r):
			sb.WriteRune(' ')
			sb.WriteRune(r)
		case r == '_':
			sb.WriteRune(' ')
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// CopyDir copies the tree at src into dst, creating dst as needed.
func CopyDir(src, dst string) error {
	return filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		return copyFile(p, target)
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// RunScript interprets a POSIX shell script in dir. Output goes to stdout
// and stderr.
func RunScript(ctx context.Context, dir, script string, stdout, stderr io.Writer) error {
	file, err := syntax.NewParser().Parse(strings.NewReader(script), "")
	if err != nil {
		return fmt.Errorf("parse script: %w", err)
	}
	runner, err := interp.New(
		interp.Dir(dir),
		interp.Env(expand.ListEnviron(os.Environ()...)),
		interp.StdIO(nil, stdout, stderr),
	)
	if err != nil {
		return fmt.Errorf("create shell: %w", err)
	}
	if err := runner.Run(ctx, file); err != nil {
		if status, ok := interp.IsExitStatus(err); ok {
			return fmt.Errorf("script exited with status %d", status)
		}
		return fmt.Errorf("run script: %w", err)
	}
	return nil
}

// ConvertToSingleHost runs the Office template's host conversion script.
func ConvertToSingleHost(ctx context.Context, dir, host string, stdout, stderr io.Writer) error {
	script := "npm run convert-to-single-host --if-present -- " + strings.ToLower(host)
	return RunScript(ctx, dir, script, stdout, stderr)
}
