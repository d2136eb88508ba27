package ledger

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dahallgren/bundyclock/internal/timeutil"
)

// workdayServer is a minimal in-memory stand-in for the remote collection.
type workdayServer struct {
	mu   sync.Mutex
	days map[string]remoteDay
}

func newWorkdayServer() *workdayServer {
	return &workdayServer{days: map[string]remoteDay{}}
}

func (s *workdayServer) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/workdays/", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()

		rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/workdays/"), "/")

		switch {
		case rest == "total_sum":
			var total int
			for _, d := range s.days {
				if d.Date >= r.URL.Query().Get("start_date") &&
					d.Date <= r.URL.Query().Get("end_date") {
					c, _ := timeSeconds(d.Total)
					total += c
				}
			}

			_ = json.NewEncoder(w).Encode(remoteTotals{TotalSum: total})
		case rest == "" && r.Method == http.MethodGet:
			list := make([]remoteDay, 0, len(s.days))
			for _, d := range s.days {
				list = append(list, d)
			}

			_ = json.NewEncoder(w).Encode(list)
		case rest == "" && r.Method == http.MethodPost:
			var d remoteDay
			if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}

			s.days[d.Date] = d
			w.WriteHeader(http.StatusCreated)
		case r.Method == http.MethodGet:
			d, ok := s.days[rest]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}

			_ = json.NewEncoder(w).Encode(d)
		case r.Method == http.MethodPut:
			var d remoteDay
			if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}

			s.days[rest] = d
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})

	return mux
}

func timeSeconds(hms string) (int, error) {
	c, err := timeutil.ParseClock(hms)
	return int(c), err
}

func TestRemoteUpsertCreatesThenUpdates(t *testing.T) {
	backend := newWorkdayServer()
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	l := NewRemote(srv.URL + "/workdays/")

	l.now = clockAt("2024-01-15", "09:00:00")
	require.NoError(t, l.RecordIn())

	backend.mu.Lock()
	created := backend.days["2024-01-15"]
	backend.mu.Unlock()
	require.Equal(t, "09:00:00", created.In)
	require.Equal(t, "09:00:00", created.Out)

	l.now = clockAt("2024-01-15", "17:30:00")
	require.NoError(t, l.RecordOut())

	backend.mu.Lock()
	updated := backend.days["2024-01-15"]
	backend.mu.Unlock()
	require.Equal(t, "09:00:00", updated.In, "check-in must not move on update")
	require.Equal(t, "17:30:00", updated.Out)
	require.Equal(t, "08:30:00", updated.Total)
}

func TestRemoteTodayZeroValuedWhenAbsent(t *testing.T) {
	srv := httptest.NewServer(newWorkdayServer().handler())
	defer srv.Close()

	l := NewRemote(srv.URL + "/workdays/")
	l.now = clockAt("2024-01-15", "09:00:00")

	rec, err := l.Today()
	require.NoError(t, err)
	require.Equal(t, "2024-01-15", rec.Day)
	require.Zero(t, rec.Total)
}

func TestRemoteMutationsSwallowNetworkFailures(t *testing.T) {
	srv := httptest.NewServer(newWorkdayServer().handler())
	srv.Close() // connection refused from here on

	l := NewRemote(srv.URL + "/workdays/")
	l.now = clockAt("2024-01-15", "09:00:00")

	// a missed punch must never crash the dispatcher
	require.NoError(t, l.RecordIn())
	require.NoError(t, l.RecordOut())
}

func TestRemoteQueriesSurfaceNetworkFailures(t *testing.T) {
	srv := httptest.NewServer(newWorkdayServer().handler())
	srv.Close()

	l := NewRemote(srv.URL + "/workdays/")
	l.now = clockAt("2024-01-15", "09:00:00")

	_, err := l.Today()
	require.ErrorIs(t, err, ErrStoreUnavailable)

	_, _, err = l.PeriodTotal("2024-01-01", "2024-01-31")
	require.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestRemotePeriodTotal(t *testing.T) {
	backend := newWorkdayServer()
	backend.days["2024-01-10"] = remoteDay{
		Date: "2024-01-10", In: "09:00:00", Out: "17:00:00", Total: "08:00:00",
	}
	backend.days["2024-01-11"] = remoteDay{
		Date: "2024-01-11", In: "09:00:00", Out: "16:30:00", Total: "07:30:00",
	}

	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	l := NewRemote(srv.URL + "/workdays/")

	worked, brk, err := l.PeriodTotal("2024-01-01", "2024-01-31")
	require.NoError(t, err)
	require.Equal(t, 15*time.Hour+30*time.Minute, worked)
	require.Zero(t, brk)
}

func TestRemoteMonth(t *testing.T) {
	backend := newWorkdayServer()
	// the server lists days in map order, so several days exercise the
	// ascending-by-day guarantee
	backend.days["2024-01-20"] = remoteDay{
		Date: "2024-01-20", In: "09:00:00", Out: "16:00:00",
	}
	backend.days["2024-01-05"] = remoteDay{
		Date: "2024-01-05", In: "08:30:00", Out: "17:30:00",
	}
	backend.days["2024-01-10"] = remoteDay{
		Date: "2024-01-10", In: "09:00:00", Out: "17:00:00",
		NumBreaks: 1, BreakSecs: 1800,
	}

	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	l := NewRemote(srv.URL + "/workdays/")

	rows, err := l.Month("2024-01")
	require.NoError(t, err)
	require.Len(t, rows, 3)

	days := []string{rows[0].Day, rows[1].Day, rows[2].Day}
	require.Equal(t, []string{"2024-01-05", "2024-01-10", "2024-01-20"}, days)

	require.Equal(t, 8*time.Hour, rows[1].Total)
	require.Equal(t, 1, rows[1].BreakCount)
	require.Equal(t, 30*time.Minute, rows[1].BreakDuration)
}
