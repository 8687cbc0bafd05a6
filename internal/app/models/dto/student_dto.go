package dto

// StudentRequest is the create/edit form of a student.
type StudentRequest struct {
	Name     string `form:"name" binding:"required,min=2,max=100,personname"`
	Phone    string `form:"phone" binding:"required,phone10"`
	BatchID  int64  `form:"batch_id" binding:"required,min=1"`
	Address  string `form:"address" binding:"omitempty,max=500"`
	School   string `form:"school" binding:"omitempty,max=150"`
	Standard string `form:"standard" binding:"omitempty,max=50"`
}

// StudentListQuery filters the student listing.
type StudentListQuery struct {
	Search  string `form:"search"`
	BatchID int64  `form:"batch_id"`
	Page    int    `form:"page"`
}
