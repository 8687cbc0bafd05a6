package controllers

import (
	"github.com/gin-gonic/gin"
	appauth "github.com/yigit/tuitiontrack/internal/app/auth"
	"github.com/yigit/tuitiontrack/internal/middleware"
	"github.com/yigit/tuitiontrack/internal/pkg/notify"
)

// NotificationRecipient resolves the socket routing key of the signed-in
// caller: "tutor:<id>" or "student:<id>".
func NotificationRecipient(ctx *gin.Context) (string, bool) {
	id := middleware.CurrentIdentity(ctx)
	if !id.Can(appauth.ReceiveNotifications) {
		return "", false
	}
	if id.IsStudent() {
		return notify.Recipient{Kind: notify.StudentRecipient, ID: id.StudentID}.Key(), true
	}
	return notify.Recipient{Kind: notify.TutorRecipient, ID: id.TutorID}.Key(), true
}
