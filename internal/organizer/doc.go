// Package organizer orchestrates moving a confirmed file into the library.
//
// One organize run chains path building, safety validation, rollback point
// creation, the move itself, and the state transitions around it. Preview
// runs the same checks without touching disk or database state.
package organizer
