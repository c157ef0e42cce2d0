package doctor

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/medvoice/backend/internal/model/doctor"
)

func TestListDoctors(t *testing.T) {
	r := chi.NewRouter()
	New(doctor.NewMemoryStore(doctor.Seed())).RegisterRoutes(r)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/doctors", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var got []doctor.Doctor
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != len(doctor.Seed()) {
		t.Fatalf("expected %d doctors, got %d", len(doctor.Seed()), len(got))
	}
	if got[0].Specialist != "General Physician" || got[0].Gender != doctor.GenderFemale {
		t.Fatalf("unexpected first doctor: %+v", got[0])
	}
}
