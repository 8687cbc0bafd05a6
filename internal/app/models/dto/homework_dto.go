package dto

// HomeworkRequest is the share/edit form. The attachment travels as the
// multipart field "file".
type HomeworkRequest struct {
	Title          string `form:"title" binding:"required,min=1,max=200"`
	Content        string `form:"content" binding:"omitempty,max=10000"`
	BatchID        int64  `form:"batch_id" binding:"omitempty,min=0"`
	StudentID      int64  `form:"student_id" binding:"omitempty,min=0"`
	VideoURL       string `form:"video_url" binding:"omitempty,url,max=500"`
	SubmissionDate string `form:"submission_date" binding:"required,datetime=2006-01-02"`
	RemoveFile     bool   `form:"remove_file"`
}
