package controller

import (
	"learning_platform_backend/internal/model"
	"learning_platform_backend/internal/repository"
	"learning_platform_backend/internal/service"
	"learning_platform_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ExamController struct {
	ExamService *service.ExamService
}

func NewExamController(examService *service.ExamService) *ExamController {
	return &ExamController{ExamService: examService}
}

type RecordResultRequest struct {
	StudentID  uint    `json:"studentId"`
	ExamID     uint    `json:"examId" binding:"required"`
	Percentage float64 `json:"percentage"`
}

type SubmitAnswersRequest struct {
	Answers []string `json:"answers" binding:"required"`
}

// hideAnswers strips the answer key before an exam is shown to a student.
func hideAnswers(exam model.Exam) model.Exam {
	questions := make([]model.ExamQuestion, len(exam.Questions))
	for i, q := range exam.Questions {
		q.CorrectAnswer = ""
		questions[i] = q
	}
	exam.Questions = questions
	return exam
}

// CreateExam godoc
// @Summary Create an exam
// @Tags Exam
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.ExamRequest true "Exam"
// @Success 201 {object} util.Response{data=model.Exam}
// @Router /api/v1/exams [post]
func (c *ExamController) CreateExam(ctx *gin.Context) {
	var req service.ExamRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.ValidationError(ctx, err)
		return
	}
	exam, err := c.ExamService.CreateExam(req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, exam)
}

// ListExams godoc
// @Summary List exams
// @Description Students only see published exams, without answers
// @Tags Exam
// @Produce json
// @Security ApiKeyAuth
// @Param subjectId query int false "Subject ID"
// @Param topicId query int false "Topic ID"
// @Param level query string false "Level"
// @Success 200 {object} util.Response{data=[]model.Exam}
// @Router /api/v1/exams [get]
func (c *ExamController) ListExams(ctx *gin.Context) {
	admin := isAdmin(ctx)
	exams, err := c.ExamService.ListExams(repository.ExamFilter{
		SubjectID:     util.MustParseUint(ctx.Query("subjectId")),
		TopicID:       util.MustParseUint(ctx.Query("topicId")),
		Level:         model.StudentLevel(ctx.Query("level")),
		PublishedOnly: !admin,
	})
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	if !admin {
		for i := range exams {
			exams[i] = hideAnswers(exams[i])
		}
	}
	util.Success(ctx, exams)
}

// GetExam godoc
// @Summary Get an exam
// @Tags Exam
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Exam ID"
// @Success 200 {object} util.Response{data=model.Exam}
// @Router /api/v1/exams/{id} [get]
func (c *ExamController) GetExam(ctx *gin.Context) {
	id, ok := util.ParamID(ctx, "id")
	if !ok {
		return
	}
	exam, err := c.ExamService.GetExam(id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	if isAdmin(ctx) {
		util.Success(ctx, exam)
		return
	}
	if !exam.IsPublished {
		util.HandleError(ctx, util.ErrExamNotFound)
		return
	}
	util.Success(ctx, hideAnswers(*exam))
}

// UpdateExam godoc
// @Summary Update an exam
// @Tags Exam
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Exam ID"
// @Param body body service.ExamRequest true "Exam"
// @Success 200 {object} util.Response{data=model.Exam}
// @Router /api/v1/exams/{id} [put]
func (c *ExamController) UpdateExam(ctx *gin.Context) {
	id, ok := util.ParamID(ctx, "id")
	if !ok {
		return
	}
	var req service.ExamRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.ValidationError(ctx, err)
		return
	}
	exam, err := c.ExamService.UpdateExam(id, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, exam)
}

// TogglePublish godoc
// @Summary Publish or unpublish an exam
// @Tags Exam
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Exam ID"
// @Success 200 {object} util.Response{data=model.Exam}
// @Router /api/v1/exams/{id}/publish [put]
func (c *ExamController) TogglePublish(ctx *gin.Context) {
	id, ok := util.ParamID(ctx, "id")
	if !ok {
		return
	}
	exam, err := c.ExamService.TogglePublish(id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, exam)
}

// DeleteExam godoc
// @Summary Delete an exam and its records
// @Tags Exam
// @Security ApiKeyAuth
// @Param id path int true "Exam ID"
// @Success 200 {object} util.Response
// @Router /api/v1/exams/{id} [delete]
func (c *ExamController) DeleteExam(ctx *gin.Context) {
	id, ok := util.ParamID(ctx, "id")
	if !ok {
		return
	}
	if err := c.ExamService.DeleteExam(id); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.SuccessWithMessage(ctx, "Exam deleted", nil)
}

// SubmitAnswers godoc
// @Summary Submit answers and record the score
// @Tags Exam
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Exam ID"
// @Param body body SubmitAnswersRequest true "Answers in question order"
// @Success 201 {object} util.Response{data=model.RecordExam}
// @Router /api/v1/exams/{id}/submit [post]
func (c *ExamController) SubmitAnswers(ctx *gin.Context) {
	sid, ok := studentID(ctx)
	if !ok {
		return
	}
	id, ok := util.ParamID(ctx, "id")
	if !ok {
		return
	}
	var req SubmitAnswersRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.ValidationError(ctx, err)
		return
	}
	record, err := c.ExamService.SubmitAnswers(sid, id, req.Answers)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, record)
}

// RecordResult godoc
// @Summary Record an exam percentage
// @Description Students record their own result; admins pass studentId
// @Tags Exam
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body RecordResultRequest true "Result"
// @Success 201 {object} util.Response{data=model.RecordExam}
// @Router /api/v1/exam-records [post]
func (c *ExamController) RecordResult(ctx *gin.Context) {
	p, _, ok := participant(ctx)
	if !ok {
		return
	}
	var req RecordResultRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.ValidationError(ctx, err)
		return
	}
	if p.Kind == model.ParticipantStudent {
		req.StudentID = p.RefID
	}
	if req.StudentID == 0 {
		util.BadRequest(ctx, "studentId is required")
		return
	}
	record, err := c.ExamService.RecordResult(req.StudentID, req.ExamID, req.Percentage)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, record)
}

// MyRecords godoc
// @Summary The caller's exam records
// @Tags Exam
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.RecordExam}
// @Router /api/v1/exam-records/me [get]
func (c *ExamController) MyRecords(ctx *gin.Context) {
	sid, ok := studentID(ctx)
	if !ok {
		return
	}
	records, err := c.ExamService.RecordsByStudent(sid)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, records)
}

// StudentRecords godoc
// @Summary A student's exam records
// @Tags Exam
// @Produce json
// @Security ApiKeyAuth
// @Param studentId path int true "Student ID"
// @Success 200 {object} util.Response{data=[]model.RecordExam}
// @Router /api/v1/exam-records/students/{studentId} [get]
func (c *ExamController) StudentRecords(ctx *gin.Context) {
	sid, ok := util.ParamID(ctx, "studentId")
	if !ok {
		return
	}
	records, err := c.ExamService.RecordsByStudent(sid)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, records)
}

// ExamRecords godoc
// @Summary Every record for an exam
// @Tags Exam
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Exam ID"
// @Success 200 {object} util.Response{data=[]model.RecordExam}
// @Router /api/v1/exams/{id}/records [get]
func (c *ExamController) ExamRecords(ctx *gin.Context) {
	id, ok := util.ParamID(ctx, "id")
	if !ok {
		return
	}
	records, err := c.ExamService.RecordsByExam(id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, records)
}

// TopRecords godoc
// @Summary Best scores for an exam
// @Tags Exam
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Exam ID"
// @Param limit query int false "How many, default 10"
// @Success 200 {object} util.Response{data=[]model.RecordExam}
// @Router /api/v1/exams/{id}/top [get]
func (c *ExamController) TopRecords(ctx *gin.Context) {
	id, ok := util.ParamID(ctx, "id")
	if !ok {
		return
	}
	records, err := c.ExamService.TopRecords(id, int(util.MustParseUint(ctx.Query("limit"))))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, records)
}

// LatestRecords godoc
// @Summary Most recent exam records
// @Tags Exam
// @Produce json
// @Security ApiKeyAuth
// @Param limit query int false "How many, default 10"
// @Success 200 {object} util.Response{data=[]model.RecordExam}
// @Router /api/v1/exam-records/latest [get]
func (c *ExamController) LatestRecords(ctx *gin.Context) {
	records, err := c.ExamService.LatestRecords(int(util.MustParseUint(ctx.Query("limit"))))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, records)
}

// GetRecord godoc
// @Summary Get an exam record
// @Tags Exam
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Record ID"
// @Success 200 {object} util.Response{data=model.RecordExam}
// @Router /api/v1/exam-records/{id} [get]
func (c *ExamController) GetRecord(ctx *gin.Context) {
	p, _, ok := participant(ctx)
	if !ok {
		return
	}
	id, ok := util.ParamID(ctx, "id")
	if !ok {
		return
	}
	record, err := c.ExamService.GetRecord(id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	if p.Kind == model.ParticipantStudent && record.StudentID != p.RefID {
		util.HandleError(ctx, util.ErrRecordNotFound)
		return
	}
	util.Success(ctx, record)
}

// DeleteRecord godoc
// @Summary Delete an exam record
// @Tags Exam
// @Security ApiKeyAuth
// @Param id path int true "Record ID"
// @Success 200 {object} util.Response
// @Router /api/v1/exam-records/{id} [delete]
func (c *ExamController) DeleteRecord(ctx *gin.Context) {
	id, ok := util.ParamID(ctx, "id")
	if !ok {
		return
	}
	if err := c.ExamService.DeleteRecord(id); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.SuccessWithMessage(ctx, "Exam record deleted", nil)
}
