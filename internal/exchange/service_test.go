package exchange

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swapbnb/api/internal/credits"
	"github.com/swapbnb/api/internal/events"
	"github.com/swapbnb/api/internal/message"
	"github.com/swapbnb/api/internal/payment"
	"github.com/swapbnb/api/internal/principal"
)

type fixture struct {
	store     *fakeStore
	video     *fakeVideo
	gateway   *fakeGateway
	events    *events.Recorder
	svc       *Service
	requester uuid.UUID
	host      uuid.UUID
	reqHome   uuid.UUID
	hostHome  uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:     newFakeStore(),
		video:     &fakeVideo{},
		gateway:   &fakeGateway{},
		events:    &events.Recorder{},
		requester: uuid.New(),
		host:      uuid.New(),
		reqHome:   uuid.New(),
		hostHome:  uuid.New(),
	}
	f.store.homes[f.reqHome] = f.requester
	f.store.homes[f.hostHome] = f.host
	f.svc = NewService(f.store, f.video, f.gateway, f.events, Options{
		PerSwap:        1,
		UnitPriceCents: 1000,
		Currency:       "eur",
		FrontendURL:    "https://swapbnb.test",
	})
	return f
}

func (f *fixture) create(t *testing.T) *Exchange {
	t.Helper()
	start := time.Now().AddDate(0, 1, 0)
	ex, err := f.svc.Create(context.Background(), f.requester, CreateInput{
		RequesterHomeID: f.reqHome,
		HostHomeID:      f.hostHome,
		StartDate:       start,
		EndDate:         start.AddDate(0, 0, 7),
		Message:         " Hi! ",
	})
	require.NoError(t, err)
	return ex
}

// withStatus creates an exchange and forces it into status
func (f *fixture) withStatus(t *testing.T, status string) *Exchange {
	t.Helper()
	ex := f.create(t)
	f.store.exchanges[ex.ID].Status = status
	ex.Status = status
	return ex
}

func (f *fixture) router(as uuid.UUID) http.Handler {
	h := NewHandler(f.svc)
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(principal.WithUser(req.Context(), as, "user@example.com")))
		})
	})
	r.Route("/exchanges", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Get("/", h.List)
		r.Get("/{id}", h.Get)
		r.Delete("/{id}", h.Delete)
		r.Post("/{id}/accept", h.Accept)
		r.Post("/{id}/reject", h.Reject)
		r.Post("/{id}/cancel", h.Cancel)
		r.Post("/{id}/videocall", h.ScheduleVideoCall)
		r.Post("/{id}/videocall/skip", h.SkipVideoCall)
		r.Post("/{id}/videocall/complete", h.CompleteVideoCall)
		r.Post("/{id}/pay", h.PayCredits)
		r.Post("/{id}/checkout", h.CreateCheckout)
	})
	return r
}

func (f *fixture) do(t *testing.T, as uuid.UUID, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.router(as).ServeHTTP(rec, httptest.NewRequest(method, path, bytes.NewBufferString(body)))
	return rec
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	start := time.Now().AddDate(0, 0, 10)

	tests := []struct {
		name    string
		actor   uuid.UUID
		in      CreateInput
		wantErr error
	}{
		{"end before start", f.requester, CreateInput{RequesterHomeID: f.reqHome, HostHomeID: f.hostHome, StartDate: start, EndDate: start}, ErrInvalidDates},
		{"start in the past", f.requester, CreateInput{RequesterHomeID: f.reqHome, HostHomeID: f.hostHome, StartDate: time.Now().AddDate(0, 0, -2), EndDate: start}, ErrInvalidDates},
		{"own home", f.host, CreateInput{RequesterHomeID: f.hostHome, HostHomeID: f.hostHome, StartDate: start, EndDate: start.AddDate(0, 0, 3)}, ErrOwnHome},
		{"someone else's home", uuid.New(), CreateInput{RequesterHomeID: f.reqHome, HostHomeID: f.hostHome, StartDate: start, EndDate: start.AddDate(0, 0, 3)}, ErrNotHomeOwner},
		{"unknown host home", f.requester, CreateInput{RequesterHomeID: f.reqHome, HostHomeID: uuid.New(), StartDate: start, EndDate: start.AddDate(0, 0, 3)}, ErrHomeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, tt.actor, tt.in)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
	assert.Empty(t, f.store.exchanges)
}

func TestCreate_Pending(t *testing.T) {
	f := newFixture(t)
	f.store.identity[f.host] = "verified"

	ex := f.create(t)

	assert.Equal(t, StatusPending, ex.Status)
	assert.Equal(t, f.host, ex.HostID)
	assert.Equal(t, "Hi!", ex.Message)
	assert.Equal(t, "verified", ex.HostIdentityStatus)
	assert.Equal(t, "unverified", ex.RequesterIdentityStatus)
	assert.Equal(t, []events.Type{events.ExchangeRequested}, f.events.Types())
	assert.Equal(t, []uuid.UUID{f.host}, f.events.Events[0].RecipientIDs)
}

func TestCreate_HTTP(t *testing.T) {
	f := newFixture(t)
	start := time.Now().AddDate(0, 2, 0).Format(time.DateOnly)
	end := time.Now().AddDate(0, 2, 5).Format(time.DateOnly)

	body := `{"requester_home_id":"` + f.reqHome.String() + `","host_home_id":"` + f.hostHome.String() +
		`","start_date":"` + start + `","end_date":"` + end + `"}`
	rec := f.do(t, f.requester, http.MethodPost, "/exchanges", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = f.do(t, f.requester, http.MethodPost, "/exchanges", `{"requester_home_id":"nope"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGet_ParticipantsOnly(t *testing.T) {
	f := newFixture(t)
	ex := f.create(t)

	assert.Equal(t, http.StatusOK, f.do(t, f.host, http.MethodGet, "/exchanges/"+ex.ID.String(), "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, uuid.New(), http.MethodGet, "/exchanges/"+ex.ID.String(), "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, f.host, http.MethodGet, "/exchanges/not-a-uuid", "").Code)
}

func TestList_RoleFilter(t *testing.T) {
	f := newFixture(t)
	f.create(t)
	ctx := context.Background()

	asHost, err := f.svc.List(ctx, f.host, ListFilter{Role: RoleHost})
	require.NoError(t, err)
	assert.Len(t, asHost, 1)

	asRequester, err := f.svc.List(ctx, f.host, ListFilter{Role: RoleRequester})
	require.NoError(t, err)
	assert.Empty(t, asRequester)

	_, err = f.svc.List(ctx, f.host, ListFilter{Role: "owner"})
	assert.ErrorIs(t, err, ErrInvalidRole)
	_, err = f.svc.List(ctx, f.host, ListFilter{Status: "done"})
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestAcceptReject_HostOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ex := f.create(t)

	_, err := f.svc.Accept(ctx, f.requester, ex.ID)
	assert.ErrorIs(t, err, ErrHostOnly)
	assert.Equal(t, StatusPending, f.store.status(ex.ID))

	rec := f.do(t, f.requester, http.MethodPost, "/exchanges/"+ex.ID.String()+"/reject", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	accepted, err := f.svc.Accept(ctx, f.host, ex.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusAccepted, accepted.Status)
	assert.NotNil(t, accepted.AcceptedAt)

	// accepting twice is an illegal transition
	rec = f.do(t, f.host, http.MethodPost, "/exchanges/"+ex.ID.String()+"/accept", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, StatusAccepted, f.store.status(ex.ID))
}

func TestIllegalTransitions_LeaveStatusUnchanged(t *testing.T) {
	tests := []struct {
		status string
		path   string
	}{
		{StatusPending, "/pay"},
		{StatusPending, "/videocall/skip"},
		{StatusPending, "/videocall/complete"},
		{StatusAccepted, "/videocall/complete"},
		{StatusAccepted, "/reject"},
		{StatusVideoCallScheduled, "/videocall/skip"},
		{StatusVideoCallCompleted, "/videocall/skip"},
		{StatusConfirmed, "/cancel"},
		{StatusConfirmed, "/pay"},
		{StatusRejected, "/accept"},
		{StatusCancelled, "/cancel"},
	}

	for _, tt := range tests {
		t.Run(tt.status+tt.path, func(t *testing.T) {
			f := newFixture(t)
			ex := f.withStatus(t, tt.status)
			f.store.balances[f.requester] = 5

			rec := f.do(t, f.host, http.MethodPost, "/exchanges/"+ex.ID.String()+tt.path, "")

			assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
			assert.Equal(t, tt.status, f.store.status(ex.ID))
			assert.Empty(t, f.store.ledger)
		})
	}
}

func TestPaymentScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.balances[f.requester] = 1
	f.store.balances[f.host] = 1

	ex := f.create(t)
	_, err := f.svc.Accept(ctx, f.host, ex.ID)
	require.NoError(t, err)

	res, err := f.svc.PayCredits(ctx, f.requester, ex.ID)
	require.NoError(t, err)
	assert.True(t, res.Exchange.RequesterCreditsPaid)
	assert.False(t, res.Confirmed)
	assert.Equal(t, StatusAccepted, res.Exchange.Status)
	assert.Equal(t, 0, f.store.balance(f.requester))
	require.NotNil(t, res.Balance)
	assert.Equal(t, 0, *res.Balance)

	rows := f.store.ledgerFor(f.requester)
	require.Len(t, rows, 1)
	assert.Equal(t, credits.TypeSwapPayment, rows[0].Type)
	assert.Equal(t, -1, rows[0].Signed)

	rec := f.do(t, f.host, http.MethodPost, "/exchanges/"+ex.ID.String()+"/pay", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body PaymentResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Confirmed)
	assert.True(t, body.Exchange.HostCreditsPaid)
	assert.Equal(t, StatusConfirmed, body.Exchange.Status)
	assert.NotNil(t, body.Exchange.ConfirmedAt)
	assert.Equal(t, StatusConfirmed, f.store.status(ex.ID))

	assert.Contains(t, f.events.Types(), events.ExchangeConfirmed)
}

func TestPayCredits_Failures(t *testing.T) {
	t.Run("insufficient credits rolls back", func(t *testing.T) {
		f := newFixture(t)
		ex := f.withStatus(t, StatusAccepted)

		rec := f.do(t, f.requester, http.MethodPost, "/exchanges/"+ex.ID.String()+"/pay", "")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "insufficient credits")
		stored, _ := f.store.Get(context.Background(), ex.ID)
		assert.False(t, stored.RequesterCreditsPaid)
		assert.Empty(t, f.store.ledger)
	})

	t.Run("paying twice", func(t *testing.T) {
		f := newFixture(t)
		f.store.balances[f.requester] = 3
		ex := f.withStatus(t, StatusVideoCallCompleted)

		_, err := f.svc.PayCredits(context.Background(), f.requester, ex.ID)
		require.NoError(t, err)

		rec := f.do(t, f.requester, http.MethodPost, "/exchanges/"+ex.ID.String()+"/pay", "")
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, 2, f.store.balance(f.requester))
	})

	t.Run("stranger", func(t *testing.T) {
		f := newFixture(t)
		stranger := uuid.New()
		f.store.balances[stranger] = 3
		ex := f.withStatus(t, StatusAccepted)

		_, err := f.svc.PayCredits(context.Background(), stranger, ex.ID)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Equal(t, 3, f.store.balance(stranger))
	})
}

func TestMarkPaidExternally(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.balances[f.host] = 1
	ex := f.withStatus(t, StatusAccepted)

	res, err := f.svc.MarkPaidExternally(ctx, f.requester, ex.ID, "cs_req")
	require.NoError(t, err)
	assert.True(t, res.Exchange.RequesterCreditsPaid)
	assert.Nil(t, res.Balance)
	assert.Empty(t, f.store.ledger)
	paid := len(f.events.Events)

	// replaying the same session changes nothing
	res, err = f.svc.MarkPaidExternally(ctx, f.requester, ex.ID, "cs_req")
	require.NoError(t, err)
	assert.False(t, res.Confirmed)
	assert.Len(t, f.events.Events, paid)

	// a second checkout for a share that is already paid is reported
	_, err = f.svc.MarkPaidExternally(ctx, f.requester, ex.ID, "cs_req_2")
	assert.ErrorIs(t, err, ErrAlreadyPaid)

	res, err = f.svc.PayCredits(ctx, f.host, ex.ID)
	require.NoError(t, err)
	assert.True(t, res.Confirmed)

	// the confirming session still replays cleanly after confirmation
	res, err = f.svc.MarkPaidExternally(ctx, f.requester, ex.ID, "cs_req")
	require.NoError(t, err)
	assert.True(t, res.Confirmed)

	_, err = f.svc.MarkPaidExternally(ctx, f.requester, uuid.New(), "cs_req")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMarkPaidExternally_AfterCreditPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.balances[f.requester] = 1
	ex := f.withStatus(t, StatusVideoCallCompleted)

	_, err := f.svc.PayCredits(ctx, f.requester, ex.ID)
	require.NoError(t, err)

	_, err = f.svc.MarkPaidExternally(ctx, f.requester, ex.ID, "cs_late")
	assert.ErrorIs(t, err, ErrAlreadyPaid)

	stored, _ := f.store.Get(ctx, ex.ID)
	assert.True(t, stored.RequesterCreditsPaid)
	assert.Nil(t, stored.RequesterPaymentSession)
	assert.Equal(t, StatusVideoCallCompleted, stored.Status)
}

func TestCancel_RefundsPaidShares(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.balances[f.requester] = 1
	ex := f.withStatus(t, StatusVideoCallCompleted)

	_, err := f.svc.PayCredits(ctx, f.requester, ex.ID)
	require.NoError(t, err)
	require.Equal(t, 0, f.store.balance(f.requester))

	cancelled, err := f.svc.Cancel(ctx, f.host, ex.ID)
	require.NoError(t, err)

	assert.Equal(t, StatusCancelled, cancelled.Status)
	assert.NotNil(t, cancelled.CancelledAt)
	assert.False(t, cancelled.RequesterCreditsPaid)
	assert.Equal(t, 1, f.store.balance(f.requester))
	assert.Equal(t, 0, f.store.balance(f.host))

	rows := f.store.ledgerFor(f.requester)
	require.Len(t, rows, 2)
	assert.Equal(t, credits.TypeRefund, rows[1].Type)
	assert.Equal(t, 1, rows[1].Signed)
}

func TestLifecycleNotices(t *testing.T) {
	notices := func(f *fixture) []*message.SystemNotice {
		var out []*message.SystemNotice
		for _, m := range f.store.messages {
			if m.MessageType == message.TypeSystem {
				out = append(out, m.Payload.System)
			}
		}
		return out
	}

	t.Run("accept and confirm", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		f.store.balances[f.requester] = 1
		f.store.balances[f.host] = 1
		ex := f.create(t)

		_, err := f.svc.Accept(ctx, f.host, ex.ID)
		require.NoError(t, err)
		require.Len(t, f.store.messages, 1)
		accepted := f.store.messages[0]
		assert.Equal(t, f.host, accepted.SenderID)
		assert.Equal(t, f.requester, accepted.ReceiverID)
		require.NotNil(t, accepted.ExchangeID)
		assert.Equal(t, ex.ID, *accepted.ExchangeID)

		_, err = f.svc.PayCredits(ctx, f.requester, ex.ID)
		require.NoError(t, err)
		assert.Len(t, f.store.messages, 1)

		_, err = f.svc.PayCredits(ctx, f.host, ex.ID)
		require.NoError(t, err)

		assert.Equal(t, []*message.SystemNotice{
			{Event: string(events.ExchangeAccepted), Status: StatusAccepted},
			{Event: string(events.ExchangeConfirmed), Status: StatusConfirmed},
		}, notices(f))
	})

	t.Run("reject", func(t *testing.T) {
		f := newFixture(t)
		ex := f.create(t)

		_, err := f.svc.Reject(context.Background(), f.host, ex.ID)
		require.NoError(t, err)
		assert.Equal(t, []*message.SystemNotice{{Event: string(events.ExchangeRejected), Status: StatusRejected}}, notices(f))
	})

	t.Run("cancel", func(t *testing.T) {
		f := newFixture(t)
		ex := f.withStatus(t, StatusAccepted)

		_, err := f.svc.Cancel(context.Background(), f.requester, ex.ID)
		require.NoError(t, err)
		require.Len(t, f.store.messages, 1)
		assert.Equal(t, f.host, f.store.messages[0].ReceiverID)
		assert.Equal(t, []*message.SystemNotice{{Event: string(events.ExchangeCancelled), Status: StatusCancelled}}, notices(f))
	})

	t.Run("failed transition posts nothing", func(t *testing.T) {
		f := newFixture(t)
		ex := f.create(t)

		_, err := f.svc.Accept(context.Background(), f.requester, ex.ID)
		assert.ErrorIs(t, err, ErrHostOnly)
		assert.Empty(t, f.store.messages)
	})
}

func TestVideoCall(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ex := f.withStatus(t, StatusAccepted)
	at := time.Now().Add(48 * time.Hour).UTC().Truncate(time.Second)

	rec := f.do(t, f.requester, http.MethodPost, "/exchanges/"+ex.ID.String()+"/videocall",
		`{"scheduled_at":"`+at.Format(time.RFC3339)+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	stored, _ := f.store.Get(ctx, ex.ID)
	assert.Equal(t, StatusVideoCallScheduled, stored.Status)
	require.NotNil(t, stored.VideocallRoomURL)
	assert.Equal(t, "https://video.test/"+ex.ID.String(), *stored.VideocallRoomURL)

	require.Len(t, f.store.messages, 1)
	invite := f.store.messages[0]
	assert.Equal(t, message.TypeVideoCallInvite, invite.MessageType)
	assert.Equal(t, f.host, invite.ReceiverID)
	require.NotNil(t, invite.Payload.VideoCall)
	assert.True(t, at.Equal(invite.Payload.VideoCall.ScheduledAt))

	// reschedule
	_, err := f.svc.ScheduleVideoCall(ctx, f.host, ex.ID, at.Add(time.Hour))
	require.NoError(t, err)
	assert.Len(t, f.store.messages, 2)

	_, err = f.svc.ScheduleVideoCall(ctx, f.host, ex.ID, time.Now().Add(-time.Minute))
	assert.ErrorIs(t, err, ErrInvalidSchedule)

	done, err := f.svc.CompleteVideoCall(ctx, f.requester, ex.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusVideoCallCompleted, done.Status)
	assert.NotNil(t, done.VideocallCompletedAt)
}

func TestScheduleVideoCall_PendingNeverCreatesRoom(t *testing.T) {
	f := newFixture(t)
	ex := f.create(t)

	_, err := f.svc.ScheduleVideoCall(context.Background(), f.requester, ex.ID, time.Now().Add(time.Hour))

	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Zero(t, f.video.calls)
	assert.Empty(t, f.store.messages)
}

func TestSkipVideoCall(t *testing.T) {
	f := newFixture(t)
	ex := f.withStatus(t, StatusAccepted)

	skipped, err := f.svc.SkipVideoCall(context.Background(), f.host, ex.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusVideoCallCompleted, skipped.Status)
}

func TestDelete_OnlyWhenNeverWentAhead(t *testing.T) {
	statuses := []string{
		StatusPending, StatusAccepted, StatusVideoCallScheduled, StatusVideoCallCompleted,
		StatusConfirmed, StatusRejected, StatusCancelled,
	}

	for _, status := range statuses {
		t.Run(status, func(t *testing.T) {
			f := newFixture(t)
			ex := f.withStatus(t, status)

			rec := f.do(t, f.requester, http.MethodDelete, "/exchanges/"+ex.ID.String(), "")

			if IsDeletable(status) {
				assert.Equal(t, http.StatusNoContent, rec.Code)
				assert.NotContains(t, f.store.exchanges, ex.ID)
			} else {
				assert.Equal(t, http.StatusConflict, rec.Code)
				assert.Equal(t, status, f.store.status(ex.ID))
			}
		})
	}
}

func TestDelete_StrangerGetsNotFound(t *testing.T) {
	f := newFixture(t)
	ex := f.create(t)

	rec := f.do(t, uuid.New(), http.MethodDelete, "/exchanges/"+ex.ID.String(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, f.store.exchanges, ex.ID)
}

func TestCreateCheckout(t *testing.T) {
	f := newFixture(t)
	ex := f.withStatus(t, StatusAccepted)

	rec := f.do(t, f.host, http.MethodPost, "/exchanges/"+ex.ID.String()+"/checkout", "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	req := f.gateway.last
	require.NotNil(t, req)
	assert.Equal(t, int64(1000), req.UnitAmountCents)
	assert.Equal(t, payment.KindExchangePayment, req.Metadata[payment.MetaKind])
	assert.Equal(t, ex.ID.String(), req.Metadata[payment.MetaExchangeID])
	assert.Equal(t, f.host.String(), req.Metadata[payment.MetaUserID])
	assert.Contains(t, req.SuccessURL, "/exchanges/"+ex.ID.String())

	f.gateway.err = payment.ErrNotConfigured
	rec = f.do(t, f.host, http.MethodPost, "/exchanges/"+ex.ID.String()+"/checkout", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSyncIdentityStatus(t *testing.T) {
	f := newFixture(t)
	open := f.create(t)
	closed := f.withStatus(t, StatusConfirmed)

	n, err := f.svc.SyncIdentityStatus(context.Background(), f.host, "verified")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.Equal(t, "verified", f.store.exchanges[open.ID].HostIdentityStatus)
	assert.Equal(t, "unverified", f.store.exchanges[closed.ID].HostIdentityStatus)
}
