package report

// Status defines the processing state of an order file during a run.
type Status string

// Constants representing the defined file processing statuses.
const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusSuccess    Status = "success"
	StatusFailed     Status = "failed"
)

// RejectReason classifies why an order line produced no ParsedRecord.
type RejectReason string

// Constants representing the defined rejection reasons, in check order.
const (
	RejectFormat         RejectReason = "format"
	RejectNumberFormat   RejectReason = "number_format"
	RejectValidation     RejectReason = "validation"
	RejectUnknownProduct RejectReason = "unknown_product"
)

// AllRejectReasons lists every reason in the order the parser checks them.
var AllRejectReasons = []RejectReason{
	RejectFormat,
	RejectNumberFormat,
	RejectValidation,
	RejectUnknownProduct,
}
