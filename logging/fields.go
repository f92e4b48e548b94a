package logging

// Standard attribute keys, so log lines can be grepped consistently.
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldBudgetID   = "budget_id"
	FieldCategoryID = "category_id"
	FieldExpenseID  = "expense_id"
	FieldActor      = "actor"
	FieldAction     = "action"
	FieldVersion    = "version"
	FieldAttempt    = "attempt"
	FieldCode       = "code"
	FieldError      = "error"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatus     = "status"
	FieldDuration   = "duration"
)
