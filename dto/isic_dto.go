package dto

// CardType is the physical or digital form of an ISIC card
type CardType string

const (
	CardTypePhysical CardType = "physical"
	CardTypeDigital  CardType = "digital"
)

// ISICCardData is the result of one recognition pass over a card image.
// Fields the extractor could not find are empty strings, never omitted.
type ISICCardData struct {
	CardNumber  string   `json:"cardNumber" validate:"required,min=5,max=20,cardnumber"`
	FullName    string   `json:"fullName" validate:"required,min=2,max=255,personname"`
	DateOfBirth string   `json:"dateOfBirth" validate:"required,isodate,birthdate"`
	ExpiryDate  string   `json:"expiryDate" validate:"required,isodate,notexpired"`
	Institution string   `json:"institution" validate:"required,min=2,max=255"`
	CardType    CardType `json:"cardType" validate:"required,oneof=physical digital"`
	Confidence  float64  `json:"confidence"`
}

// RecognitionProgress is reported while the OCR engine works on an image
type RecognitionProgress struct {
	Status   string  `json:"status"`
	Progress float64 `json:"progress"` // 0..1
}

// UploadedFile is the single image accepted by an upload session
type UploadedFile struct {
	Name     string
	MimeType string
	Data     []byte
}

// Size returns the file size in bytes
func (f *UploadedFile) Size() int64 {
	if f == nil {
		return 0
	}
	return int64(len(f.Data))
}

// ISICUploadRequest is the body sent to the wallet backend on consent
type ISICUploadRequest struct {
	VirtualCardID    string       `json:"virtualCardId"`
	CardData         ISICCardData `json:"cardData"`
	UploadScreenshot bool         `json:"uploadScreenshot"`
	ScreenshotBase64 string       `json:"screenshotBase64"`
}

// FieldError describes a single invalid review form field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationResult is the outcome of validating review form fields
type ValidationResult struct {
	Valid  bool         `json:"valid"`
	Errors []FieldError `json:"errors"`
}

// ErrorFor returns the message for a field, or "" when the field is valid
func (r ValidationResult) ErrorFor(field string) string {
	for _, e := range r.Errors {
		if e.Field == field {
			return e.Message
		}
	}
	return ""
}

// SessionState is a read-only snapshot of an upload session
type SessionState struct {
	ID            string               `json:"id"`
	Step          string               `json:"step"`
	VirtualCardID string               `json:"virtualCardId"`
	FileName      string               `json:"fileName,omitempty"`
	FileSize      int64                `json:"fileSize,omitempty"`
	ExtractedData *ISICCardData        `json:"extractedData,omitempty"`
	Progress      *RecognitionProgress `json:"progress,omitempty"`
	SaveToServer  bool                 `json:"saveToServer"`
	LowConfidence bool                 `json:"lowConfidence"`
	Error         string               `json:"error,omitempty"`
}

// ExtractResponse is returned by the stateless extraction endpoint
type ExtractResponse struct {
	ISICCardData
	LowConfidence bool `json:"lowConfidence"`
}
