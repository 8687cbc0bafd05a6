// Package services holds the business rules of the tuition tracker. Every
// operation takes the tutor id of the signed-in identity and never reads or
// writes rows of another tutor.
//
// Services defined in this package:
//   - AuthService: tutor login, OTP challenges, signup and student login
//   - TutorService: tutor profile
//   - BatchService: batches and their schedules
//   - StudentService: students, cascade deletion with an audit record
//   - AttendanceService: marking page and saving attendance
//   - HomeworkService: sharing homework and serving attachments
//   - DashboardService: tutor dashboard and class reminders
//   - ReportService: monthly, batch and student attendance reports
//   - ExportService: CSV and spreadsheet downloads
//   - PortalService: student portal pages and polls
//   - HelpService: help widget answers
//   - MaintenanceService: purging expired homework and old attendance
package services
