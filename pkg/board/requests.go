package board

// CreateContentRequest contains parameters for creating a content
type CreateContentRequest struct {
	Category string   `json:"category" validate:"required,oneof=apply notice cardnews"`
	Title    string   `json:"title" validate:"required,min=1,max=200"`
	Contents string   `json:"contents" validate:"required,min=1,max=10000"`
	Images   []string `json:"images" validate:"omitempty,dive,required"`

	// Files are uploaded through the ImageUploader; their URLs follow Images
	Files []ImageFile `json:"-" validate:"-"`
}

// UpdateContentRequest contains parameters for a partial content update.
// Nil, empty-string and empty-list values mean "no change".
type UpdateContentRequest struct {
	Category *string  `json:"category,omitempty"`
	Title    *string  `json:"title,omitempty"`
	Contents *string  `json:"contents,omitempty"`
	Images   []string `json:"images,omitempty"`
}

// updateFields is the validated view of an UpdateContentRequest once
// "no change" values are reduced to empty strings.
type updateFields struct {
	Category string `json:"category" validate:"omitempty,oneof=apply notice cardnews"`
	Title    string `json:"title" validate:"omitempty,max=200"`
	Contents string `json:"contents" validate:"omitempty,max=10000"`
}

// ListContentRequest contains parameters for listing contents
type ListContentRequest struct {
	Page     int    `json:"page"`
	Limit    int    `json:"limit"`
	Category string `json:"category,omitempty"`
}

// Default listing window.
const (
	DefaultPage  = 1
	DefaultLimit = 10
)

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
