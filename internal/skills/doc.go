// Package skills implements skill dispatch for the Office add-in
// participant: a Registry of skills that declare a capability, a Planner
// that asks the model which capability matches the user's ask, and the
// built-in CodeGenerator skill. Declarative prompt skills are loaded from
// JSONC files.
package skills
