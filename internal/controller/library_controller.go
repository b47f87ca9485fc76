package controller

import (
	"learning_platform_backend/internal/model"
	"learning_platform_backend/internal/service"
	"learning_platform_backend/internal/util"
	"strconv"

	"github.com/gin-gonic/gin"
)

type LibraryController struct {
	LibraryService *service.LibraryService
}

func NewLibraryController(library *service.LibraryService) *LibraryController {
	return &LibraryController{LibraryService: library}
}

// CreateBook godoc
// @Summary Add a library book
// @Description Upload a PDF or cover image, or pass filePath
// @Tags Library
// @Accept multipart/form-data
// @Produce json
// @Security ApiKeyAuth
// @Param title formData string true "Title"
// @Param subjectId formData int false "Subject"
// @Param level formData string false "Level"
// @Param authorFullName formData string false "Author"
// @Param description formData string false "Description"
// @Param file formData file false "Book file"
// @Success 201 {object} util.Response{data=model.LibraryBook}
// @Router /api/v1/library [post]
func (c *LibraryController) CreateBook(ctx *gin.Context) {
	var req service.BookRequest
	if err := ctx.ShouldBind(&req); err != nil {
		util.ValidationError(ctx, err)
		return
	}
	file, _ := ctx.FormFile("file")
	book, err := c.LibraryService.CreateBook(ctx.Request.Context(), req, file)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, book)
}

// ListBooks godoc
// @Summary List library books
// @Tags Library
// @Produce json
// @Security ApiKeyAuth
// @Param subjectId query int false "Subject"
// @Param level query string false "Level"
// @Success 200 {object} util.Response{data=[]model.LibraryBook}
// @Router /api/v1/library [get]
func (c *LibraryController) ListBooks(ctx *gin.Context) {
	subjectID := util.MustParseUint(ctx.Query("subjectId"))
	books, err := c.LibraryService.ListBooks(subjectID, model.StudentLevel(ctx.Query("level")), !isAdmin(ctx))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, books)
}

// PopularBooks godoc
// @Summary Most liked books
// @Tags Library
// @Produce json
// @Security ApiKeyAuth
// @Param limit query int false "How many"
// @Success 200 {object} util.Response{data=[]model.LibraryBook}
// @Router /api/v1/library/popular [get]
func (c *LibraryController) PopularBooks(ctx *gin.Context) {
	limit, _ := strconv.Atoi(ctx.Query("limit"))
	books, err := c.LibraryService.PopularBooks(limit)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, books)
}

// GetBook godoc
// @Summary Get a book
// @Tags Library
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Book ID"
// @Success 200 {object} util.Response{data=model.LibraryBook}
// @Router /api/v1/library/{id} [get]
func (c *LibraryController) GetBook(ctx *gin.Context) {
	id, ok := util.ParamID(ctx, "id")
	if !ok {
		return
	}
	book, err := c.LibraryService.GetBook(id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, book)
}

// UpdateBook godoc
// @Summary Update a book
// @Tags Library
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Book ID"
// @Param body body service.BookRequest true "Book"
// @Success 200 {object} util.Response{data=model.LibraryBook}
// @Router /api/v1/library/{id} [put]
func (c *LibraryController) UpdateBook(ctx *gin.Context) {
	id, ok := util.ParamID(ctx, "id")
	if !ok {
		return
	}
	var req service.BookRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.ValidationError(ctx, err)
		return
	}
	book, err := c.LibraryService.UpdateBook(id, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, book)
}

// ToggleLike godoc
// @Summary Like or unlike a book
// @Tags Library
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Book ID"
// @Success 200 {object} util.Response{data=object}
// @Router /api/v1/library/{id}/like [post]
func (c *LibraryController) ToggleLike(ctx *gin.Context) {
	sid, ok := studentID(ctx)
	if !ok {
		return
	}
	id, ok := util.ParamID(ctx, "id")
	if !ok {
		return
	}
	book, liked, err := c.LibraryService.ToggleLike(id, sid)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"book": book, "liked": liked})
}

// DeleteBook godoc
// @Summary Delete a book
// @Tags Library
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Book ID"
// @Success 200 {object} util.Response
// @Router /api/v1/library/{id} [delete]
func (c *LibraryController) DeleteBook(ctx *gin.Context) {
	id, ok := util.ParamID(ctx, "id")
	if !ok {
		return
	}
	if err := c.LibraryService.DeleteBook(ctx.Request.Context(), id); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.SuccessWithMessage(ctx, "Book deleted", nil)
}
