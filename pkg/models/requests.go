package models

// CreateApplicationRequest instantiates an application from a service template.
type CreateApplicationRequest struct {
	ServiceCode   string `json:"service_code"   validate:"required"`
	ApplicantName string `json:"applicant_name" validate:"required,min=2"`
}

// UploadDocumentRequest records a file already stored in object storage
// against a required document.
type UploadDocumentRequest struct {
	FileURL          string `json:"file_url"          validate:"required"`
	OriginalFilename string `json:"original_filename" validate:"required"`
	FileType         string `json:"file_type"`
	FileSizeBytes    int64  `json:"file_size_bytes"   validate:"gte=0"`
}

// VerifyDocumentRequest accepts or rejects an uploaded document.
type VerifyDocumentRequest struct {
	Verified        *bool  `json:"verified"                   validate:"required"`
	RejectionReason string `json:"rejection_reason,omitempty"`
}

// AdvanceRequest is the shared payload of the advance, send-back and reject
// workflow actions.
type AdvanceRequest struct {
	Remarks      string `json:"remarks,omitempty"`
	SendBack     bool   `json:"send_back,omitempty"`
	SendBackTo   int    `json:"send_back_to,omitempty"   validate:"required_if=SendBack true,gte=0"`
	RejectReason string `json:"reject_reason,omitempty"`
}

// IsReject reports whether the payload asks for the application to be rejected.
func (r AdvanceRequest) IsReject() bool {
	return r.RejectReason != ""
}
