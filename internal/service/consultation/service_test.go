package consultation_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	model "github.com/zhouzirui/medvoice/backend/internal/model/consultation"
	"github.com/zhouzirui/medvoice/backend/internal/model/doctor"
	repo "github.com/zhouzirui/medvoice/backend/internal/repository/consultation"
	consultation "github.com/zhouzirui/medvoice/backend/internal/service/consultation"
	"github.com/zhouzirui/medvoice/backend/pkg/apperr"
	"github.com/zhouzirui/medvoice/backend/pkg/database"
)

func newService(t *testing.T, policy consultation.ReadPolicy) *consultation.Service {
	t.Helper()
	db, err := database.Open(database.MemoryDSN(t.Name()), nil)
	require.NoError(t, err)

	store := repo.NewGormStore(db)
	require.NoError(t, store.Migrate(context.Background()))
	return consultation.NewService(store, policy)
}

func generalPhysician() doctor.Doctor {
	return doctor.Seed()[0]
}

func TestCreateGeneratesDistinctIDs(t *testing.T) {
	svc := newService(t, consultation.ReadOwner)
	ctx := context.Background()

	const n = 20
	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		session, err := svc.Create(ctx, "a@example.com", consultation.CreateInput{
			Notes:          "headache",
			SelectedDoctor: generalPhysician(),
		})
		require.NoError(t, err)
		require.NotEmpty(t, session.SessionID)
		seen[session.SessionID] = struct{}{}
	}
	assert.Len(t, seen, n)
}

func TestCreateRequiresIdentity(t *testing.T) {
	svc := newService(t, consultation.ReadOwner)

	_, err := svc.Create(context.Background(), "", consultation.CreateInput{SelectedDoctor: generalPhysician()})
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
}

func TestCreateRejectsMalformedDoctor(t *testing.T) {
	svc := newService(t, consultation.ReadOwner)

	_, err := svc.Create(context.Background(), "a@example.com", consultation.CreateInput{
		SelectedDoctor: doctor.Doctor{Specialist: "Nobody"},
	})
	assert.Equal(t, apperr.KindInvalid, apperr.KindOf(err))
}

func TestListOnlyCallerNewestFirst(t *testing.T) {
	svc := newService(t, consultation.ReadOwner)
	ctx := context.Background()

	owners := []string{"a@example.com", "b@example.com", "a@example.com", "a@example.com", "b@example.com"}
	var created []string
	for _, owner := range owners {
		session, err := svc.Create(ctx, owner, consultation.CreateInput{SelectedDoctor: generalPhysician()})
		require.NoError(t, err)
		if owner == "a@example.com" {
			created = append(created, session.SessionID)
		}
	}

	sessions, err := svc.ListForOwner(ctx, "a@example.com")
	require.NoError(t, err)
	require.Len(t, sessions, len(created))
	for i, session := range sessions {
		assert.Equal(t, "a@example.com", session.CreatedBy)
		assert.Equal(t, created[len(created)-1-i], session.SessionID)
	}
}

func TestConcurrentCreatesKeepStrictOrder(t *testing.T) {
	svc := newService(t, consultation.ReadOwner)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			owner := "a@example.com"
			if i%2 == 1 {
				owner = "b@example.com"
			}
			_, err := svc.Create(ctx, owner, consultation.CreateInput{SelectedDoctor: generalPhysician()})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	sessions, err := svc.ListForOwner(ctx, "b@example.com")
	require.NoError(t, err)
	require.Len(t, sessions, 5)
	for i := 1; i < len(sessions); i++ {
		assert.Greater(t, sessions[i-1].ID, sessions[i].ID)
	}
}

func TestGetUnknownReturnsNil(t *testing.T) {
	svc := newService(t, consultation.ReadOwner)

	session, err := svc.Get(context.Background(), "a@example.com", "does-not-exist")
	require.NoError(t, err)
	assert.Nil(t, session)
}

func TestGetReadPolicy(t *testing.T) {
	ctx := context.Background()

	t.Run("owner", func(t *testing.T) {
		svc := newService(t, consultation.ReadOwner)
		created, err := svc.Create(ctx, "a@example.com", consultation.CreateInput{SelectedDoctor: generalPhysician()})
		require.NoError(t, err)

		other, err := svc.Get(ctx, "b@example.com", created.SessionID)
		require.NoError(t, err)
		assert.Nil(t, other)

		mine, err := svc.Get(ctx, "a@example.com", created.SessionID)
		require.NoError(t, err)
		require.NotNil(t, mine)
	})

	t.Run("open", func(t *testing.T) {
		svc := newService(t, consultation.ReadOpen)
		created, err := svc.Create(ctx, "a@example.com", consultation.CreateInput{SelectedDoctor: generalPhysician()})
		require.NoError(t, err)

		other, err := svc.Get(ctx, "b@example.com", created.SessionID)
		require.NoError(t, err)
		require.NotNil(t, other)
		assert.Equal(t, created.SessionID, other.SessionID)
	})
}

func TestAttachReportEndToEnd(t *testing.T) {
	svc := newService(t, consultation.ReadOwner)
	ctx := context.Background()

	created, err := svc.Create(ctx, "a@example.com", consultation.CreateInput{
		Notes:          "headache",
		SelectedDoctor: generalPhysician(),
	})
	require.NoError(t, err)
	assert.Equal(t, "headache", created.Notes)
	assert.False(t, created.HasReport())

	report := model.Report{
		ChiefComplaint:       "headache",
		Summary:              "Tension headache for two days.",
		Symptoms:             []string{"headache"},
		Severity:             model.SeverityMild,
		MedicationsMentioned: []string{},
		Recommendations:      []string{"rest"},
	}
	require.NoError(t, svc.AttachReport(ctx, created.SessionID, report))
	require.NoError(t, svc.AttachReport(ctx, created.SessionID, report))

	got, err := svc.Get(ctx, "a@example.com", created.SessionID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.NotNil(t, got.Report)
	assert.Equal(t, "headache", got.Report.ChiefComplaint)
	assert.Equal(t, model.SeverityMild, got.Report.Severity)
	assert.Equal(t, created.Notes, got.Notes)
	assert.Equal(t, created.SelectedDoctor, got.SelectedDoctor)
	assert.Equal(t, created.ID, got.ID)

	all, err := svc.ListForOwner(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestParseReadPolicy(t *testing.T) {
	policy, err := consultation.ParseReadPolicy("")
	require.NoError(t, err)
	assert.Equal(t, consultation.ReadOwner, policy)

	policy, err = consultation.ParseReadPolicy("OPEN")
	require.NoError(t, err)
	assert.Equal(t, consultation.ReadOpen, policy)

	_, err = consultation.ParseReadPolicy("public")
	assert.Error(t, err)
}
