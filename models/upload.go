package models

type UploadKind string

const (
	UploadKindEyeExam      UploadKind = "eye_exam"
	UploadKindProductImage UploadKind = "product_image"
	UploadKindBrandLogo    UploadKind = "brand_logo"
)

// AdminOnly reports whether only administrators may upload this kind.
func (k UploadKind) AdminOnly() bool {
	return k == UploadKindProductImage || k == UploadKindBrandLogo
}

type PresignUploadRequest struct {
	Kind        UploadKind `json:"kind" binding:"required,oneof=eye_exam product_image brand_logo"`
	Filename    string     `json:"filename" binding:"required,max=255"`
	ContentType string     `json:"content_type" binding:"required,max=100"`
}

type PresignUploadResponse struct {
	UploadURL string            `json:"upload_url"`
	Key       string            `json:"key"`
	Headers   map[string]string `json:"headers,omitempty"`
	ExpiresIn int               `json:"expires_in"`
}

type UploadResponse struct {
	Key      string `json:"key"`
	Location string `json:"location"`
	Size     int64  `json:"size"`
}

type FileURLResponse struct {
	URL       string `json:"url"`
	ExpiresIn int    `json:"expires_in"`
}
