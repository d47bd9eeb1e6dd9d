package admin

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worktrust/internal/verification"
	id "worktrust/pkg/domain"
	"worktrust/pkg/platform/audit"
	"worktrust/pkg/testutil"
)

type stubSweeper struct{ err error }

func (s *stubSweeper) ReVerifyExpired(context.Context, time.Time) (*verification.SweepResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &verification.SweepResult{Examined: 3, Reverified: 2, Errors: map[id.RecordID]string{}}, nil
}

type stubCredentials struct {
	revoked, reason string
}

func (s *stubCredentials) Revoke(_ context.Context, credentialID, reason string) error {
	s.revoked, s.reason = credentialID, reason
	return nil
}

func (s *stubCredentials) SyncRevocations(context.Context) (int, error) { return 4, nil }

type stubAudit struct{}

func (stubAudit) ListByUser(_ context.Context, userID id.UserID) ([]audit.Event, error) {
	return []audit.Event{{UserID: userID, Action: string(audit.EventCredentialIssued)}}, nil
}

func setup(sweeper *stubSweeper, creds *stubCredentials) chi.Router {
	r := chi.NewRouter()
	New(sweeper, creds, stubAudit{}, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(r)
	return r
}

func TestHandleSweep(t *testing.T) {
	t.Run("reports counts", func(t *testing.T) {
		rr := testutil.DoRequest(setup(&stubSweeper{}, &stubCredentials{}), testutil.NewRequest(t, http.MethodPost, "/admin/sweep"))
		testutil.AssertStatusOK(t, rr)
		result := testutil.UnmarshalResponse[verification.SweepResult](t, rr)
		assert.Equal(t, 3, result.Examined)
		assert.Equal(t, 2, result.Reverified)
	})

	t.Run("store failure is a server error", func(t *testing.T) {
		rr := testutil.DoRequest(setup(&stubSweeper{err: errors.New("db down")}, &stubCredentials{}), testutil.NewRequest(t, http.MethodPost, "/admin/sweep"))
		testutil.AssertStatus(t, rr, http.StatusInternalServerError)
	})
}

func TestHandleRevoke(t *testing.T) {
	creds := &stubCredentials{}
	router := setup(&stubSweeper{}, creds)

	rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/admin/credentials/urn:uuid:abc/revoke", map[string]string{"reason": " key compromise "}))
	testutil.AssertStatus(t, rr, http.StatusNoContent)
	assert.Equal(t, "urn:uuid:abc", creds.revoked)
	assert.Equal(t, "key compromise", creds.reason)

	rr = testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/admin/credentials/urn:uuid:abc/revoke", map[string]string{}))
	testutil.AssertStatus(t, rr, http.StatusBadRequest)
}

func TestHandleAuditAndSync(t *testing.T) {
	router := setup(&stubSweeper{}, &stubCredentials{})
	userID := uuid.NewString()

	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/admin/users/"+userID+"/audit"))
	testutil.AssertStatusOK(t, rr)
	body := testutil.UnmarshalResponse[struct {
		Events []audit.Event `json:"events"`
	}](t, rr)
	require.Len(t, body.Events, 1)
	assert.Equal(t, userID, body.Events[0].UserID.String())

	rr = testutil.DoRequest(router, testutil.NewRequest(t, http.MethodPost, "/admin/revocations/sync"))
	testutil.AssertStatusOK(t, rr)
	testutil.AssertJSONContains(t, rr, "revoked", float64(4))
}
