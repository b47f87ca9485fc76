package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"learning_platform_backend/internal/config"
	"learning_platform_backend/internal/model"
	"learning_platform_backend/internal/repository"
	"learning_platform_backend/internal/service"
	"learning_platform_backend/internal/testutil"
	"learning_platform_backend/internal/util"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// as injects claims the way the auth middleware would.
func as(p model.Participant, role model.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user", &util.Claims{UserID: p.RefID, Kind: p.Kind, Role: role})
		c.Next()
	}
}

func call(r http.Handler, method, target string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	require.NoError(t, json.Unmarshal(env.Data, out))
}

func TestHideAnswers(t *testing.T) {
	exam := model.Exam{Questions: []model.ExamQuestion{
		{QuestionText: "2+2", Options: []string{"3", "4"}, CorrectAnswer: "4"},
	}}

	hidden := hideAnswers(exam)
	assert.Empty(t, hidden.Questions[0].CorrectAnswer)
	assert.Equal(t, []string{"3", "4"}, hidden.Questions[0].Options)
	// the original is untouched
	assert.Equal(t, "4", exam.Questions[0].CorrectAnswer)
}

func TestWriteOutcome(t *testing.T) {
	cases := map[service.ReconcileOutcome]int{
		service.OutcomeSettled:        http.StatusOK,
		service.OutcomeAlreadySettled: http.StatusOK,
		service.OutcomeAwaiting:       http.StatusAccepted,
		service.OutcomeFailed:         http.StatusBadRequest,
	}
	for outcome, want := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		writeOutcome(c, &service.ReconcileResult{Outcome: outcome, Message: string(outcome)})
		assert.Equal(t, want, w.Code, outcome)
	}
}

type examEnv struct {
	router  *gin.Engine
	svc     *service.ExamService
	subject *model.Subject
}

func newExamEnv(t *testing.T, role model.UserRole) *examEnv {
	t.Helper()
	db := testutil.NewDB(t)
	svc := service.NewExamService(
		repository.NewExamRepository(db),
		repository.NewRecordExamRepository(db),
		repository.NewSubjectRepository(db),
		repository.NewTopicRepository(db),
		repository.NewStudentRepository(db),
	)
	p := model.StudentParticipant(testutil.CreateStudent(t, db, "ctl-exam@example.com").ID)
	if role.IsAdmin() {
		p = model.AdminParticipant(testutil.CreateAdmin(t, db, "ctl-admin@example.com", role).ID)
	}

	ctl := NewExamController(svc)
	r := gin.New()
	g := r.Group("", as(p, role))
	g.GET("/exams", ctl.ListExams)
	g.GET("/exams/:id", ctl.GetExam)
	g.POST("/exams/:id/submit", ctl.SubmitAnswers)
	return &examEnv{router: r, svc: svc, subject: testutil.CreateSubject(t, db, "Chemistry")}
}

func (e *examEnv) exam(t *testing.T, published bool) *model.Exam {
	t.Helper()
	exam, err := e.svc.CreateExam(service.ExamRequest{
		SubjectID:         e.subject.ID,
		Title:             "Atoms",
		DurationInMinutes: 20,
		IsPublished:       &published,
		Questions:         []model.ExamQuestion{{QuestionText: "Symbol of gold", Options: []string{"Au", "Ag"}, CorrectAnswer: "Au"}},
	})
	require.NoError(t, err)
	return exam
}

func TestStudentExamView(t *testing.T) {
	env := newExamEnv(t, model.RoleStudent)
	draft := env.exam(t, false)
	live := env.exam(t, true)

	w := call(env.router, http.MethodGet, "/exams/"+itoa(draft.ID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = call(env.router, http.MethodGet, "/exams/"+itoa(live.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got model.Exam
	decodeData(t, w, &got)
	require.Len(t, got.Questions, 1)
	assert.Empty(t, got.Questions[0].CorrectAnswer)

	w = call(env.router, http.MethodGet, "/exams", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []model.Exam
	decodeData(t, w, &list)
	require.Len(t, list, 1)
	assert.Equal(t, live.ID, list[0].ID)

	w = call(env.router, http.MethodPost, "/exams/"+itoa(live.ID)+"/submit", SubmitAnswersRequest{Answers: []string{"au"}})
	require.Equal(t, http.StatusCreated, w.Code)
	var record model.RecordExam
	decodeData(t, w, &record)
	assert.Equal(t, 100.0, record.Percentage)
}

func TestAdminExamView(t *testing.T) {
	env := newExamEnv(t, model.RoleTeacher)
	draft := env.exam(t, false)

	w := call(env.router, http.MethodGet, "/exams/"+itoa(draft.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got model.Exam
	decodeData(t, w, &got)
	assert.Equal(t, "Au", got.Questions[0].CorrectAnswer)

	// admins cannot sit exams
	w = call(env.router, http.MethodPost, "/exams/"+itoa(draft.ID)+"/submit", SubmitAnswersRequest{Answers: []string{"Au"}})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

type stubGateway struct {
	status service.GatewayStatus
}

func (g *stubGateway) Name() string { return "stub" }

func (g *stubGateway) Initiate(_ context.Context, in service.InitiateRequest) (*service.InitiateResult, error) {
	return &service.InitiateResult{PollURL: "https://gateway.test/poll/" + in.Reference}, nil
}

func (g *stubGateway) Poll(context.Context, string) (service.GatewayStatus, error) {
	return g.status, nil
}

func (g *stubGateway) ParseNotification([]byte) (string, service.GatewayStatus, error) {
	return "", service.GatewayStatusUnknown, util.NewError(util.ErrUnauthenticated, "Invalid notification signature")
}

type walletEnv struct {
	router  *gin.Engine
	db      *gorm.DB
	gateway *stubGateway
	student *model.Student
}

func newWalletEnv(t *testing.T) *walletEnv {
	t.Helper()
	db := testutil.NewDB(t)
	students := repository.NewStudentRepository(db)
	wallets := service.NewWalletService(db, repository.NewWalletRepository(db), students, nil, &config.Config{})
	gw := &stubGateway{}
	payments := service.NewPaymentService(repository.NewPaymentRepository(db), students, wallets, gw)
	student := testutil.CreateStudent(t, db, "ctl-wallet@example.com")

	wc := NewWalletController(wallets)
	pc := NewPaymentController(payments)
	r := gin.New()
	r.POST("/payments/webhook", pc.Webhook)
	me := r.Group("", as(model.StudentParticipant(student.ID), model.RoleStudent))
	me.POST("/wallets", wc.CreateWallet)
	me.GET("/wallets/me", wc.MyWallet)
	me.POST("/wallets/me/withdrawals", wc.Withdraw)
	me.POST("/payments", pc.MakePayment)
	me.GET("/payments/status", pc.CheckStatus)
	admin := r.Group("/admin", as(model.AdminParticipant(1), model.RoleMainAdmin))
	admin.POST("/wallets/students/:studentId/deposits", wc.Deposit)

	return &walletEnv{router: r, db: db, gateway: gw, student: student}
}

func TestWalletEndpoints(t *testing.T) {
	env := newWalletEnv(t)

	w := call(env.router, http.MethodPost, "/wallets", CreateWalletRequest{Currency: "usd"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = call(env.router, http.MethodPost, "/wallets", CreateWalletRequest{})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = call(env.router, http.MethodPost, "/admin/wallets/students/"+itoa(env.student.ID)+"/deposits",
		map[string]string{"amount": "30", "method": "cash", "status": "completed"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = call(env.router, http.MethodPost, "/wallets/me/withdrawals", map[string]string{"amount": "31", "method": "ecocash"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = call(env.router, http.MethodPost, "/wallets/me/withdrawals", map[string]string{"amount": "10", "method": "ecocash"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = call(env.router, http.MethodGet, "/wallets/me", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var wallet model.Wallet
	decodeData(t, w, &wallet)
	assert.Equal(t, "20", wallet.Balance.String())
	assert.Len(t, wallet.Deposits, 1)
	assert.Len(t, wallet.Withdrawals, 1)
}

func TestPaymentStatusAndWebhook(t *testing.T) {
	env := newWalletEnv(t)
	w := call(env.router, http.MethodPost, "/wallets", CreateWalletRequest{})
	require.Equal(t, http.StatusCreated, w.Code)

	w = call(env.router, http.MethodPost, "/payments", map[string]interface{}{
		"amount": "12", "method": "ecocash", "reference": "REF-C1", "topUpWallet": true,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var payment model.Payment
	decodeData(t, w, &payment)
	require.NotNil(t, payment.PollURL)

	w = call(env.router, http.MethodGet, "/payments/status", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	env.gateway.status = service.GatewayStatusCreated
	w = call(env.router, http.MethodGet, "/payments/status?pollUrl="+url.QueryEscape(*payment.PollURL), nil)
	assert.Equal(t, http.StatusAccepted, w.Code)

	// the pushed status is ignored until the gateway confirms it
	w = call(env.router, http.MethodPost, "/payments/webhook", WebhookRequest{PollURL: *payment.PollURL, Status: "paid"})
	assert.Equal(t, http.StatusAccepted, w.Code)
	w = call(env.router, http.MethodGet, "/wallets/me", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var wallet model.Wallet
	decodeData(t, w, &wallet)
	assert.True(t, wallet.Balance.IsZero())

	env.gateway.status = service.GatewayStatusCancelled
	w = call(env.router, http.MethodPost, "/payments/webhook", WebhookRequest{PollURL: *payment.PollURL, Status: "cancelled"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res service.ReconcileResult
	decodeData(t, w, &res)
	assert.Equal(t, service.OutcomeFailed, res.Outcome)

	w = call(env.router, http.MethodPost, "/payments/webhook", map[string]string{"status": "paid"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = call(env.router, http.MethodPost, "/payments/webhook", WebhookRequest{PollURL: "https://gateway.test/poll/none", Status: "paid"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func TestDashboardRefresh(t *testing.T) {
	db := testutil.NewDB(t)
	wallets := service.NewWalletService(db, repository.NewWalletRepository(db), repository.NewStudentRepository(db), nil, &config.Config{})
	dash := service.NewDashboardService(repository.NewDashboardRepository(db), repository.NewPaymentRepository(db), wallets, testutil.NewMemoryRedis())
	r := gin.New()
	r.GET("/dashboard", NewDashboardController(dash).GetDashboard)

	students := func(target string) int64 {
		t.Helper()
		w := call(r, http.MethodGet, target, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var out service.Dashboard
		decodeData(t, w, &out)
		return out.Counts.Students
	}

	testutil.CreateStudent(t, db, "dash-one@example.com")
	assert.EqualValues(t, 1, students("/dashboard"))
	testutil.CreateStudent(t, db, "dash-two@example.com")
	assert.EqualValues(t, 1, students("/dashboard"))
	assert.EqualValues(t, 2, students("/dashboard?refresh=true"))
}
