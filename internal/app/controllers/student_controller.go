package controllers

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/tuitiontrack/internal/app/models"
	"github.com/yigit/tuitiontrack/internal/app/models/dto"
	"github.com/yigit/tuitiontrack/internal/app/services"
	"github.com/yigit/tuitiontrack/internal/middleware"
	pkgrender "github.com/yigit/tuitiontrack/internal/pkg/render"
)

const studentsPath = "/students"

// StudentController handles student pages, deletion and the portal QR code
type StudentController struct {
	studentService *services.StudentService
	batchService   *services.BatchService
	baseURL        string
	logger         zerolog.Logger
}

// NewStudentController creates a new StudentController. baseURL is the public
// address used in the portal login link.
func NewStudentController(studentService *services.StudentService, batchService *services.BatchService, baseURL string, logger zerolog.Logger) *StudentController {
	return &StudentController{
		studentService: studentService,
		batchService:   batchService,
		baseURL:        strings.TrimRight(baseURL, "/"),
		logger:         logger,
	}
}

func studentForm(s *models.Student) dto.StudentRequest {
	return dto.StudentRequest{
		Name:     s.Name,
		Phone:    s.Phone,
		BatchID:  s.BatchID,
		Address:  s.Address,
		School:   s.School,
		Standard: s.Standard,
	}
}

// portalLink is the login URL printed as a QR code on the student page.
func (c *StudentController) portalLink(phone string) string {
	return c.baseURL + "/student/login?phone=" + url.QueryEscape(phone)
}

// formData loads the batch dropdown. An error is returned when no batch
// exists yet since a student needs one.
func (c *StudentController) formData(ctx *gin.Context, form dto.StudentRequest) (gin.H, error) {
	id := middleware.CurrentIdentity(ctx)
	batches, err := c.batchService.ListAll(ctx.Request.Context(), id.TutorID)
	if err != nil {
		return nil, err
	}
	return gin.H{"Form": form, "Batches": batches}, nil
}

// List renders one page of students with the search and batch filter.
func (c *StudentController) List(ctx *gin.Context) {
	id := middleware.CurrentIdentity(ctx)

	var q dto.StudentListQuery
	if err := ctx.ShouldBindQuery(&q); err != nil {
		q = dto.StudentListQuery{}
	}
	q.Search = strings.TrimSpace(q.Search)

	students, pagination, err := c.studentService.List(ctx.Request.Context(), id.TutorID, q)
	if err != nil {
		middleware.HandlePageError(ctx, err)
		return
	}
	batches, err := c.batchService.ListAll(ctx.Request.Context(), id.TutorID)
	if err != nil {
		middleware.HandlePageError(ctx, err)
		return
	}
	render(ctx, http.StatusOK, "students.html", gin.H{
		"Students":   students,
		"Batches":    batches,
		"Query":      q,
		"Pagination": pagination,
	})
}

// New renders the empty student form. Without batches the tutor is sent to
// create one first.
func (c *StudentController) New(ctx *gin.Context) {
	data, err := c.formData(ctx, dto.StudentRequest{BatchID: queryID(ctx, "batch_id")})
	if err != nil {
		middleware.HandlePageError(ctx, err)
		return
	}
	if batches, _ := data["Batches"].([]*models.Batch); len(batches) == 0 {
		redirect(ctx, middleware.FlashInfo, "Please create a batch first", "/batches/new")
		return
	}
	render(ctx, http.StatusOK, "student_form.html", data)
}

// Create stores a new student.
func (c *StudentController) Create(ctx *gin.Context) {
	id := middleware.CurrentIdentity(ctx)

	var req dto.StudentRequest
	bindErr := ctx.ShouldBind(&req)
	data, err := c.formData(ctx, req)
	if err != nil {
		middleware.HandlePageError(ctx, err)
		return
	}
	if bindErr != nil {
		renderForm(ctx, "student_form.html", data, middleware.BindError(bindErr))
		return
	}

	student, err := c.studentService.Create(ctx.Request.Context(), id.TutorID, req)
	if err != nil {
		renderForm(ctx, "student_form.html", data, err)
		return
	}
	redirect(ctx, middleware.FlashSuccess, fmt.Sprintf("Student %s added successfully!", student.Name), studentsPath)
}

// Show renders one student with the portal login QR code.
func (c *StudentController) Show(ctx *gin.Context) {
	studentID, ok := idParam(ctx, "id")
	if !ok {
		invalidID(ctx, studentsPath)
		return
	}
	id := middleware.CurrentIdentity(ctx)

	student, err := c.studentService.Get(ctx.Request.Context(), id.TutorID, studentID)
	if err != nil {
		pageError(ctx, err, studentsPath)
		return
	}
	render(ctx, http.StatusOK, "student_detail.html", gin.H{
		"Student":    student,
		"PortalLink": c.portalLink(student.Phone),
	})
}

// QRCode serves the portal login link of a student as a PNG.
func (c *StudentController) QRCode(ctx *gin.Context) {
	studentID, ok := idParam(ctx, "id")
	if !ok {
		invalidID(ctx, studentsPath)
		return
	}
	id := middleware.CurrentIdentity(ctx)

	student, err := c.studentService.Get(ctx.Request.Context(), id.TutorID, studentID)
	if err != nil {
		pageError(ctx, err, studentsPath)
		return
	}
	png, err := pkgrender.QRCodePNG(c.portalLink(student.Phone))
	if err != nil {
		middleware.HandlePageError(ctx, err)
		return
	}
	ctx.Header("Cache-Control", "private, max-age=3600")
	ctx.Data(http.StatusOK, "image/png", png)
}

// Edit renders the form of an existing student.
func (c *StudentController) Edit(ctx *gin.Context) {
	studentID, ok := idParam(ctx, "id")
	if !ok {
		invalidID(ctx, studentsPath)
		return
	}
	id := middleware.CurrentIdentity(ctx)

	student, err := c.studentService.Get(ctx.Request.Context(), id.TutorID, studentID)
	if err != nil {
		pageError(ctx, err, studentsPath)
		return
	}
	data, err := c.formData(ctx, studentForm(student))
	if err != nil {
		middleware.HandlePageError(ctx, err)
		return
	}
	data["Student"] = student
	render(ctx, http.StatusOK, "student_form.html", data)
}

// Update saves an edited student.
func (c *StudentController) Update(ctx *gin.Context) {
	studentID, ok := idParam(ctx, "id")
	if !ok {
		invalidID(ctx, studentsPath)
		return
	}
	id := middleware.CurrentIdentity(ctx)

	var req dto.StudentRequest
	bindErr := ctx.ShouldBind(&req)
	data, err := c.formData(ctx, req)
	if err != nil {
		middleware.HandlePageError(ctx, err)
		return
	}
	data["Student"] = &models.Student{ID: studentID}
	if bindErr != nil {
		renderForm(ctx, "student_form.html", data, middleware.BindError(bindErr))
		return
	}

	student, err := c.studentService.Update(ctx.Request.Context(), id.TutorID, studentID, req)
	if err != nil {
		if isNotFoundError(err) {
			pageError(ctx, err, studentsPath)
			return
		}
		renderForm(ctx, "student_form.html", data, err)
		return
	}
	redirect(ctx, middleware.FlashSuccess, fmt.Sprintf("Student %s updated successfully!", student.Name), fmt.Sprintf("/students/%d", student.ID))
}

// Delete answers DELETE /api/students/:id. Attendance and personal homework
// of the student are removed with them.
func (c *StudentController) Delete(ctx *gin.Context) {
	studentID, ok := idParam(ctx, "id")
	if !ok {
		invalidID(ctx, studentsPath)
		return
	}
	id := middleware.CurrentIdentity(ctx)

	if err := c.studentService.Delete(ctx.Request.Context(), id.TutorID, studentID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, nil)
}
