package dto

// LoginRequest starts a tutor login or signup.
type LoginRequest struct {
	Mobile string `form:"mobile" binding:"required,phone10"`
	Action string `form:"action" binding:"omitempty,oneof=login signup"`
}

// VerifyOTPRequest completes the OTP step.
type VerifyOTPRequest struct {
	Code string `form:"otp" binding:"required,len=6,numeric"`
}

// SignupDetailsRequest is the last signup step.
type SignupDetailsRequest struct {
	TuitionName string `form:"tuition_name" binding:"required,min=2,max=150"`
	Name        string `form:"name" binding:"omitempty,max=100"`
	Address     string `form:"address" binding:"omitempty,max=500"`
}

// ProfileRequest edits the tutor profile.
type ProfileRequest struct {
	Name        string `form:"name" binding:"omitempty,max=100"`
	TuitionName string `form:"tuition_name" binding:"required,min=2,max=150"`
	Address     string `form:"address" binding:"omitempty,max=500"`
}

// StudentLoginRequest signs a student into the portal by phone.
type StudentLoginRequest struct {
	Phone string `form:"phone" binding:"required,phone10"`
}
