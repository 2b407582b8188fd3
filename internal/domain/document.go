package domain

// DocumentStatus is the lifecycle state of a document in the pipeline.
// The pipeline is the sole mutator of status from StatusQueued onward.
type DocumentStatus string

const (
	StatusParsing    DocumentStatus = "parsing"
	StatusQueued     DocumentStatus = "queued"
	StatusProcessing DocumentStatus = "processing"
	StatusIndexed    DocumentStatus = "indexed"
	StatusFailed     DocumentStatus = "failed"
)

// CanTransition reports whether the worker may move a document from one
// status to the next. Only the transitions the consume loop performs are
// allowed.
func CanTransition(from, to DocumentStatus) bool {
	switch from {
	case StatusQueued:
		return to == StatusProcessing
	case StatusProcessing:
		return to == StatusIndexed || to == StatusFailed
	default:
		return false
	}
}
