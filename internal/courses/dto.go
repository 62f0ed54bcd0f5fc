package courses

// CourseInput carries create, replace and partial update fields. Nil
// pointers leave the stored value untouched.
type CourseInput struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=150"`
	Description *string `json:"description"`
	Preview     *string `json:"preview" validate:"omitempty,max=255"`
}

// LessonInput carries create, replace and partial update fields.
type LessonInput struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=150"`
	Description *string `json:"description"`
	Preview     *string `json:"preview" validate:"omitempty,max=255"`
	VideoURL    *string `json:"video_url" validate:"omitempty,max=200"`
	CourseID    *int64  `json:"course" validate:"omitempty,gt=0"`
}

// ToggleInput identifies the course to (un)subscribe from.
type ToggleInput struct {
	CourseID int64 `json:"course" validate:"required,gt=0"`
}
