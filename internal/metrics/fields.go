package metrics

// Label names shared by the collectors.
const (
	LabelMethod = "method"
	LabelRoute  = "route"
	LabelStatus = "status"
	LabelOp     = "op"
	LabelResult = "result"
)

const (
	resultOK    = "ok"
	resultError = "error"
)
