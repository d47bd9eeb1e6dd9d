package verification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func oauthRecord() *Record {
	end := testNow.AddDate(0, -1, 0)
	return &Record{
		Kind:             KindWorkHistory,
		Platform:         "upwork",
		ExternalID:       "job-1",
		Source:           SourceOAuth,
		ConnectionActive: true,
		Title:            "API integration",
		Client:           &Client{Name: "Acme", ExternalID: "client-9", Verified: true},
		StartDate:        testNow.AddDate(0, -6, 0),
		EndDate:          &end,
		Earnings:         &Earnings{Amount: 10000, Currency: "USD", PaymentConfirmed: true},
	}
}

func selfReportedRecord() *Record {
	return &Record{
		Kind:      KindWorkHistory,
		Platform:  "direct",
		Source:    SourceSelf,
		Title:     "Logo design",
		Client:    &Client{Name: "Local bakery"},
		StartDate: testNow.AddDate(-1, 0, 0),
		Earnings:  &Earnings{Amount: 10000, Currency: "USD"},
	}
}

func confirmingRegistry(confirmed bool, err error) *ReconfirmerRegistry {
	reg := NewReconfirmerRegistry()
	reg.Register("Upwork", ReconfirmerFunc(func(context.Context, *Record) (Reconfirmation, error) {
		return Reconfirmation{Confirmed: confirmed}, err
	}))
	return reg
}

func TestScore(t *testing.T) {
	t.Run("weighted average rounds to nearest", func(t *testing.T) {
		checks := []Check{
			{Weight: 20, Score: 100},
			{Weight: 10, Score: 55},
		}
		// (2000 + 550) / 30 = 85.0
		assert.Equal(t, 85, Score(checks))
	})

	t.Run("no checks scores zero", func(t *testing.T) {
		assert.Equal(t, 0, Score(nil))
	})

	t.Run("inapplicable checks leave the denominator", func(t *testing.T) {
		checks := []Check{{Weight: 10, Score: 100}}
		assert.Equal(t, 100, Score(checks))
	})
}

func TestDetermineLevel(t *testing.T) {
	passing := []Check{
		{Name: CheckOAuthConnection, Passed: true},
		{Name: CheckProjectExists, Passed: true},
	}
	oauthOnly := []Check{
		{Name: CheckOAuthConnection, Passed: true},
		{Name: CheckProjectExists, Passed: false},
	}

	tests := []struct {
		name      string
		requested Level
		score     int
		checks    []Check
		want      Level
	}{
		{"sealed when requested and all gates pass", LevelCryptographicallySealed, 80, passing, LevelCryptographicallySealed},
		{"sealed not granted unless requested", LevelPlatformVerified, 95, passing, LevelPlatformVerified},
		{"sealed request below 80 falls to verified", LevelCryptographicallySealed, 79, passing, LevelPlatformVerified},
		{"verified at exactly 70", LevelPlatformVerified, 70, passing, LevelPlatformVerified},
		{"69 with oauth and project is only connected", LevelPlatformVerified, 69, passing, LevelPlatformConnected},
		{"verified requires project", LevelPlatformVerified, 90, oauthOnly, LevelPlatformConnected},
		{"connected at exactly 50", LevelPlatformVerified, 50, oauthOnly, LevelPlatformConnected},
		{"49 is self reported", LevelPlatformVerified, 49, passing, LevelSelfReported},
		{"connected requires oauth", LevelPlatformVerified, 90, nil, LevelSelfReported},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetermineLevel(tt.requested, tt.score, tt.checks))
		})
	}
}

func TestEngineRun(t *testing.T) {
	ctx := context.Background()

	t.Run("connected record with confirmed project and payment reaches verified", func(t *testing.T) {
		engine := NewEngine(confirmingRegistry(true, nil), time.Second)
		r := oauthRecord()
		hash, err := r.ContentHash()
		require.NoError(t, err)

		checks := engine.Run(ctx, r, hash, testNow)
		require.Len(t, checks, 7)
		score := Score(checks)
		assert.Equal(t, 95, score)
		assert.Equal(t, LevelPlatformVerified, DetermineLevel(LevelPlatformVerified, score, checks))
	})

	t.Run("self reported record stays self reported", func(t *testing.T) {
		engine := NewEngine(confirmingRegistry(true, nil), time.Second)
		r := selfReportedRecord()
		hash, err := r.ContentHash()
		require.NoError(t, err)

		checks := engine.Run(ctx, r, hash, testNow)
		score := Score(checks)
		assert.Equal(t, 18, score)
		assert.Equal(t, LevelSelfReported, DetermineLevel(LevelPlatformVerified, score, checks))
	})

	t.Run("payment check omitted without earnings", func(t *testing.T) {
		engine := NewEngine(nil, 0)
		r := oauthRecord()
		r.Earnings = nil
		checks := engine.Run(ctx, r, "", testNow)
		assert.Len(t, checks, 6)
		_, ok := findCheck(checks, CheckPaymentConfirmed)
		assert.False(t, ok)
	})

	t.Run("reconfirmer error fails project check only", func(t *testing.T) {
		engine := NewEngine(confirmingRegistry(false, errors.New("platform down")), time.Second)
		checks := engine.Run(ctx, oauthRecord(), "", testNow)
		c, ok := findCheck(checks, CheckProjectExists)
		require.True(t, ok)
		assert.False(t, c.Passed)
		assert.Equal(t, 0, c.Score)
		assert.Contains(t, c.Evidence, "platform down")
	})

	t.Run("reconfirmer is bounded by timeout", func(t *testing.T) {
		reg := NewReconfirmerRegistry()
		reg.Register("upwork", ReconfirmerFunc(func(ctx context.Context, _ *Record) (Reconfirmation, error) {
			<-ctx.Done()
			return Reconfirmation{}, ctx.Err()
		}))
		engine := NewEngine(reg, 10*time.Millisecond)
		checks := engine.Run(ctx, oauthRecord(), "", testNow)
		c, _ := findCheck(checks, CheckProjectExists)
		assert.False(t, c.Passed)
		assert.Contains(t, c.Evidence, "deadline exceeded")
	})
}

func TestChecks(t *testing.T) {
	t.Run("oauth connection", func(t *testing.T) {
		r := oauthRecord()
		assert.Equal(t, 100, checkOAuthConnection(r).Score)

		r.ConnectionActive = false
		c := checkOAuthConnection(r)
		assert.False(t, c.Passed)
		assert.Equal(t, 40, c.Score)

		r.Source = SourceManualImport
		assert.Equal(t, 0, checkOAuthConnection(r).Score)
	})

	t.Run("direct api source", func(t *testing.T) {
		for source, want := range map[Source]int{
			SourceOAuth:        100,
			SourceAPI:          100,
			SourceManualImport: 30,
			SourceSelf:         0,
		} {
			assert.Equal(t, want, checkDirectAPISource(&Record{Source: source}).Score, source)
		}
	})

	t.Run("payment tolerance", func(t *testing.T) {
		near := 10050.0
		far := 10200.0
		r := &Record{Earnings: &Earnings{Amount: 10000, PlatformAmount: &near}}
		c, ok := checkPaymentConfirmed(r)
		require.True(t, ok)
		assert.True(t, c.Passed)
		assert.Equal(t, 75, c.Score)

		r.Earnings.PlatformAmount = &far
		c, _ = checkPaymentConfirmed(r)
		assert.False(t, c.Passed)
		assert.Equal(t, 0, c.Score)
	})

	t.Run("client identity", func(t *testing.T) {
		assert.Equal(t, 0, checkClientIdentity(&Record{}).Score)
		assert.Equal(t, 30, checkClientIdentity(&Record{Client: &Client{Name: "x"}}).Score)
		assert.Equal(t, 60, checkClientIdentity(&Record{Client: &Client{ExternalID: "c"}}).Score)
		assert.Equal(t, 100, checkClientIdentity(&Record{Client: &Client{Verified: true, Name: "x"}}).Score)
	})

	t.Run("timeline", func(t *testing.T) {
		future := &Record{StartDate: testNow.Add(time.Hour)}
		assert.Equal(t, 0, checkTimeline(future, testNow).Score)

		before := testNow.AddDate(-2, 0, 0)
		inverted := &Record{StartDate: testNow.AddDate(-1, 0, 0), EndDate: &before}
		assert.Equal(t, 0, checkTimeline(inverted, testNow).Score)

		long := &Record{StartDate: testNow.AddDate(-11, 0, 0)}
		c := checkTimeline(long, testNow)
		assert.False(t, c.Passed)
		assert.Equal(t, 50, c.Score)

		assert.True(t, checkTimeline(&Record{StartDate: testNow.AddDate(-1, 0, 0)}, testNow).Passed)
	})

	t.Run("data integrity", func(t *testing.T) {
		c := checkDataIntegrity(&Record{}, "abc")
		assert.False(t, c.Passed)
		assert.Equal(t, 50, c.Score)

		assert.Equal(t, 100, checkDataIntegrity(&Record{OriginalHash: "abc"}, "abc").Score)
		assert.Equal(t, 0, checkDataIntegrity(&Record{OriginalHash: "abc"}, "def").Score)
	})
}

func TestContentHash_IgnoresVerificationFields(t *testing.T) {
	r := oauthRecord()
	before, err := r.ContentHash()
	require.NoError(t, err)

	r.Level = LevelPlatformVerified
	r.Score = 95
	at := testNow
	r.LastVerifiedAt = &at
	after, err := r.ContentHash()
	require.NoError(t, err)
	assert.Equal(t, before, after)

	r.Title = "changed"
	changed, err := r.ContentHash()
	require.NoError(t, err)
	assert.NotEqual(t, before, changed)
}

func TestLevelOrdering(t *testing.T) {
	assert.True(t, LevelCryptographicallySealed.AtLeast(LevelPlatformVerified))
	assert.False(t, LevelPlatformConnected.AtLeast(LevelPlatformVerified))
	assert.False(t, LevelSelfReported.AtLeast(LevelPlatformConnected))

	l, err := ParseLevel(" platform_verified ")
	require.NoError(t, err)
	assert.Equal(t, LevelPlatformVerified, l)

	_, err = ParseLevel("GOLD")
	assert.Error(t, err)
}
