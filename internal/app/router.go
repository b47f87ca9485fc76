package app

import (
	"learning_platform_backend/docs"
	"learning_platform_backend/internal/config"
	"learning_platform_backend/internal/middleware"
	"learning_platform_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())
	router.GET("/health", c.health.HealthCheck)

	v1 := router.Group("/api/v1")
	a.registerPublicRoutes(v1, c)

	authed := v1.Group("")
	authed.Use(middleware.AuthMiddleware(cfg))
	{
		a.registerAccountRoutes(authed, c)
		a.registerCatalogRoutes(authed, c)
		a.registerContentRoutes(authed, c)
		a.registerCommunityRoutes(authed, c)
		a.registerAssessmentRoutes(authed, c)
		a.registerProgressRoutes(authed, c)
		a.registerWalletRoutes(authed, c)
		a.registerPaymentRoutes(authed, c)

		authed.GET("/dashboard", middleware.AdminOnly(), c.dashboard.GetDashboard)
	}
}

func (a *App) registerPublicRoutes(v1 *gin.RouterGroup, c *controllers) {
	v1.POST("/students/register", c.auth.RegisterStudent)
	v1.POST("/students/login", c.auth.LoginStudent)
	v1.POST("/students/password-reset/request", c.auth.RequestStudentReset)
	v1.POST("/students/password-reset/verify", c.auth.VerifyStudentResetCode)
	v1.POST("/students/password-reset/reset", c.auth.ResetStudentPassword)

	v1.POST("/admins/login", c.auth.LoginAdmin)
	v1.POST("/admins/password-reset/request", c.auth.RequestAdminReset)
	v1.POST("/admins/password-reset/reset", c.auth.ResetAdminPassword)

	// the gateway calls this without a token; notifications are signed
	v1.POST("/payments/webhook", c.payment.Webhook)
}

func (a *App) registerAccountRoutes(r *gin.RouterGroup, c *controllers) {
	students := r.Group("/students")
	{
		me := students.Group("/me", middleware.StudentOnly())
		me.GET("", c.user.GetMe)
		me.PUT("", c.user.UpdateMe)
		me.POST("/picture", c.user.UploadMyPicture)
		me.POST("/phone/send-otp", c.auth.SendPhoneOTP)
		me.POST("/phone/verify-otp", c.auth.VerifyPhoneOTP)

		admin := students.Group("", middleware.AdminOnly())
		admin.GET("", c.user.ListStudents)
		admin.GET("/:id", c.user.GetStudent)
		admin.PUT("/:id", c.user.UpdateStudent)
		admin.DELETE("/:id", c.user.DeleteStudent)
		admin.GET("/:id/progress", c.progress.StudentProgress)
		admin.DELETE("/:id/progress/:topicId", c.progress.ResetTopicProgress)
	}

	admins := r.Group("/admins", middleware.AdminOnly())
	{
		admins.GET("/me", c.user.GetAdminMe)
		admins.PUT("/me", c.user.UpdateAdminMe)
		admins.POST("/me/picture", c.user.UploadAdminPicture)
		admins.GET("", c.user.ListAdmins)
		admins.GET("/:id", c.user.GetAdmin)
		admins.POST("", middleware.MainAdminOnly(), c.auth.CreateAdmin)
		admins.DELETE("/:id", middleware.MainAdminOnly(), c.user.DeleteAdmin)
	}
}

func (a *App) registerCatalogRoutes(r *gin.RouterGroup, c *controllers) {
	admin := middleware.AdminOnly()

	subjects := r.Group("/subjects")
	{
		subjects.GET("", c.catalog.ListSubjects)
		subjects.GET("/:id", c.catalog.GetSubject)
		subjects.GET("/:id/topics", c.catalog.TopicsBySubject)
		subjects.GET("/:id/topics/random", c.catalog.RandomTopics)
		subjects.POST("", admin, c.catalog.CreateSubject)
		subjects.PUT("/:id", admin, c.catalog.UpdateSubject)
		subjects.POST("/:id/image", admin, c.catalog.UploadSubjectImage)
		subjects.DELETE("/:id", admin, c.catalog.DeleteSubject)
	}

	topics := r.Group("/topics")
	{
		topics.GET("", c.catalog.ListTopics)
		topics.GET("/:id", c.catalog.GetTopic)
		topics.GET("/:id/contents", c.content.ContentByTopic)
		topics.POST("", admin, c.catalog.CreateTopic)
		topics.PUT("/:id", admin, c.catalog.UpdateTopic)
		topics.DELETE("/:id", admin, c.catalog.DeleteTopic)
	}

	banners := r.Group("/banners")
	{
		banners.GET("", c.catalog.ListBanners)
		banners.GET("/:id", c.catalog.GetBanner)
		banners.POST("", admin, c.catalog.CreateBanner)
		banners.PUT("/:id", admin, c.catalog.UpdateBanner)
		banners.DELETE("/:id", admin, c.catalog.DeleteBanner)
	}

	library := r.Group("/library")
	{
		library.GET("", c.library.ListBooks)
		library.GET("/popular", c.library.PopularBooks)
		library.GET("/:id", c.library.GetBook)
		library.POST("/:id/like", middleware.StudentOnly(), c.library.ToggleLike)
		library.POST("", admin, c.library.CreateBook)
		library.PUT("/:id", admin, c.library.UpdateBook)
		library.DELETE("/:id", admin, c.library.DeleteBook)
	}
}

func (a *App) registerContentRoutes(r *gin.RouterGroup, c *controllers) {
	admin := middleware.AdminOnly()

	contents := r.Group("/contents")
	{
		contents.GET("", c.content.ListContent)
		contents.GET("/:id", c.content.GetContent)
		contents.POST("", admin, c.content.CreateContent)
		contents.PUT("/:id", admin, c.content.UpdateContent)
		contents.POST("/:id/files", admin, c.content.UploadFile)
		contents.DELETE("/:id", admin, c.content.DeleteContent)

		contents.GET("/:id/comments", c.content.Comments)
		contents.POST("/:id/comments", c.content.AddComment)
		contents.GET("/:id/reactions", c.content.Reactions)
		contents.POST("/:id/reactions", c.content.React)
		contents.DELETE("/:id/reactions", c.content.Unreact)

		contents.GET("/:id/lessons/:lessonId/quiz", c.quiz.QuizForLesson)
		contents.POST("/:id/quizzes/trash", admin, c.quiz.TrashByContent)
		contents.POST("/:id/quizzes/restore", admin, c.quiz.RestoreByContent)
	}

	comments := r.Group("/comments")
	{
		comments.PUT("/:id", c.content.EditComment)
		comments.PATCH("/:id/lifecycle", c.content.MoveComment)
	}

	quizzes := r.Group("/quizzes", admin)
	{
		quizzes.PUT("", c.quiz.UpsertQuiz)
		quizzes.GET("", c.quiz.ListQuizzes)
		quizzes.GET("/counts", c.quiz.Counts)
		quizzes.DELETE("/trash", c.quiz.PurgeTrashed)
		quizzes.GET("/:id", c.quiz.GetQuiz)
		quizzes.PATCH("/:id/lifecycle", c.quiz.MoveQuiz)
	}
}

func (a *App) registerCommunityRoutes(r *gin.RouterGroup, c *controllers) {
	admin := middleware.AdminOnly()

	communities := r.Group("/communities")
	{
		communities.GET("", c.community.ListCommunities)
		communities.GET("/mine", c.community.MyCommunities)
		communities.GET("/:id", c.community.GetCommunity)
		communities.POST("", admin, c.community.CreateCommunity)
		communities.PUT("/:id", admin, c.community.UpdateCommunity)
		communities.DELETE("/:id", admin, c.community.DeleteCommunity)

		communities.POST("/:id/members", c.community.Join)
		communities.DELETE("/:id/members", c.community.Leave)
		communities.GET("/:id/messages", c.community.Messages)
		communities.POST("/:id/messages", c.community.PostMessage)
		communities.DELETE("/messages/:messageId", c.community.DeleteMessage)
	}

	chat := r.Group("/chat")
	{
		chat.GET("/ws", c.chat.WebSocket)
		chat.POST("/messages", c.chat.SendMessage)
		chat.DELETE("/messages/:messageId", c.chat.DeleteMessage)
		chat.GET("/partners", c.chat.Partners)
		chat.GET("/unread", c.chat.UnreadCount)
		chat.GET("/conversations/:kind/:id", c.chat.Conversation)
		chat.PUT("/conversations/:kind/:id/viewed", c.chat.MarkViewed)
		chat.DELETE("/conversations/:kind/:id", c.chat.DeleteConversation)
	}
}

func (a *App) registerAssessmentRoutes(r *gin.RouterGroup, c *controllers) {
	admin := middleware.AdminOnly()

	exams := r.Group("/exams")
	{
		exams.GET("", c.exam.ListExams)
		exams.GET("/:id", c.exam.GetExam)
		exams.POST("/:id/submit", middleware.StudentOnly(), c.exam.SubmitAnswers)
		exams.POST("", admin, c.exam.CreateExam)
		exams.PUT("/:id", admin, c.exam.UpdateExam)
		exams.PUT("/:id/publish", admin, c.exam.TogglePublish)
		exams.DELETE("/:id", admin, c.exam.DeleteExam)
		exams.GET("/:id/records", admin, c.exam.ExamRecords)
		exams.GET("/:id/top", c.exam.TopRecords)
	}

	records := r.Group("/exam-records")
	{
		records.POST("", c.exam.RecordResult)
		records.GET("/me", middleware.StudentOnly(), c.exam.MyRecords)
		records.GET("/latest", admin, c.exam.LatestRecords)
		records.GET("/students/:studentId", admin, c.exam.StudentRecords)
		records.GET("/:id", c.exam.GetRecord)
		records.DELETE("/:id", admin, c.exam.DeleteRecord)
	}
}

func (a *App) registerProgressRoutes(r *gin.RouterGroup, c *controllers) {
	progress := r.Group("/progress")
	{
		student := progress.Group("", middleware.StudentOnly())
		student.GET("", c.progress.ListProgress)
		student.GET("/topics/:topicId", c.progress.GetTopicProgress)
		student.PUT("/topics/:topicId", c.progress.UpdateTopicProgress)
		student.PUT("/topics/:topicId/lesson", c.progress.UpdateLessonProgress)
		student.POST("/topics/:topicId/complete", c.progress.CompleteTopic)

		progress.POST("/reset-stale", middleware.AdminOnly(), c.progress.ResetStale)
	}
}

func (a *App) registerWalletRoutes(r *gin.RouterGroup, c *controllers) {
	wallets := r.Group("/wallets")
	{
		wallets.POST("", c.wallet.CreateWallet)

		me := wallets.Group("/me", middleware.StudentOnly())
		me.GET("", c.wallet.MyWallet)
		me.POST("/withdrawals", c.wallet.Withdraw)
		me.GET("/withdrawals", c.wallet.Withdrawals)
		me.GET("/reconcile", c.wallet.Reconcile)

		admin := wallets.Group("", middleware.AdminOnly())
		admin.GET("", c.wallet.ListWallets)
		admin.GET("/dashboard", c.wallet.Dashboard)
		admin.POST("/deposits/complete", c.wallet.CompleteDeposit)
		admin.POST("/deposits/fail", c.wallet.FailDeposit)
		admin.POST("/withdrawals/check-expired", c.wallet.CheckExpired)
		admin.GET("/students/:studentId", c.wallet.WalletByStudent)
		admin.POST("/students/:studentId/deposits", c.wallet.Deposit)
		admin.POST("/students/:studentId/withdrawals", c.wallet.Withdraw)
		admin.GET("/students/:studentId/withdrawals", c.wallet.Withdrawals)
		admin.GET("/students/:studentId/reconcile", c.wallet.Reconcile)
		admin.GET("/:id", c.wallet.GetWallet)
		admin.PUT("/:id", c.wallet.UpdateWallet)
		admin.DELETE("/:id", c.wallet.DeleteWallet)
	}
}

func (a *App) registerPaymentRoutes(r *gin.RouterGroup, c *controllers) {
	payments := r.Group("/payments")
	{
		payments.POST("", c.payment.MakePayment)
		payments.GET("", c.payment.ListPayments)
		payments.GET("/status", c.payment.CheckStatus)
		payments.GET("/:id", c.payment.GetPayment)

		admin := payments.Group("", middleware.AdminOnly())
		admin.GET("/recent", c.payment.RecentPayments)
		admin.GET("/stats", c.payment.Stats)
		admin.PUT("/:id/status", c.payment.UpdateStatus)
		admin.DELETE("/:id", c.payment.DeletePayment)
	}
}
