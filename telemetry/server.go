// Package telemetry implements the telemetry service the panel polls: the
// shared value and speed with their history, the system status, the status
// indicator, start and stop commands, and a simulated bank of elevators.
package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/sarchlab/telepanel/datarecording"
	"github.com/sarchlab/telepanel/remote"
)

// HistoryLength is the number of samples /api/history returns.
const HistoryLength = 20

// Server serves the telemetry API.
type Server struct {
	clock    func() time.Time
	logger   *log.Logger
	store    *datarecording.Store
	building *Building

	lock      sync.Mutex
	value     float64
	speed     float64
	running   bool
	indicator bool
	history   []remote.Sample
}

// ServerBuilder builds Servers.
type ServerBuilder struct {
	clock     func() time.Time
	logger    *log.Logger
	store     *datarecording.Store
	elevators int
	floors    int
	travel    time.Duration
	dwell     time.Duration
}

// MakeServerBuilder creates a ServerBuilder with default parameters: two
// elevators in a five-floor building, two seconds per floor, and a three
// second dwell.
func MakeServerBuilder() ServerBuilder {
	return ServerBuilder{
		clock:     time.Now,
		logger:    log.New(os.Stderr, "", log.LstdFlags),
		elevators: 2,
		floors:    5,
		travel:    2 * time.Second,
		dwell:     3 * time.Second,
	}
}

// WithClock sets the wall clock of the server.
func (b ServerBuilder) WithClock(clock func() time.Time) ServerBuilder {
	b.clock = clock
	return b
}

// WithLogger sets the request logger.
func (b ServerBuilder) WithLogger(logger *log.Logger) ServerBuilder {
	b.logger = logger
	return b
}

// WithStore records the history and the logs in a SQLite store. Without a
// store the history is kept in memory.
func (b ServerBuilder) WithStore(store *datarecording.Store) ServerBuilder {
	b.store = store
	return b
}

// WithElevators sets the number of elevators.
func (b ServerBuilder) WithElevators(n int) ServerBuilder {
	b.elevators = n
	return b
}

// WithFloors sets the number of floors.
func (b ServerBuilder) WithFloors(n int) ServerBuilder {
	b.floors = n
	return b
}

// WithTravelTime sets how long an elevator takes per floor.
func (b ServerBuilder) WithTravelTime(d time.Duration) ServerBuilder {
	b.travel = d
	return b
}

// WithDwellTime sets how long an elevator stays with its doors open.
func (b ServerBuilder) WithDwellTime(d time.Duration) ServerBuilder {
	b.dwell = d
	return b
}

// Build creates the Server.
func (b ServerBuilder) Build() *Server {
	return &Server{
		clock:  b.clock,
		logger: b.logger,
		store:  b.store,
		building: NewBuilding(
			b.elevators, b.floors, b.travel, b.dwell, b.clock),
	}
}

// Building returns the simulated elevators.
func (s *Server) Building() *Building {
	return s.building
}

// Handler returns the routes of the API.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.logRequests)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/value", s.getValue).Methods(http.MethodGet)
	api.HandleFunc("/value", s.setValue).Methods(http.MethodPost)
	api.HandleFunc("/speed", s.getSpeed).Methods(http.MethodGet)
	api.HandleFunc("/speed", s.setSpeed).Methods(http.MethodPost)
	api.HandleFunc("/history", s.getHistory).Methods(http.MethodGet)
	api.HandleFunc("/elevators", s.listElevators).Methods(http.MethodGet)
	api.HandleFunc("/elevators/{id:[0-9]+}", s.getElevator).
		Methods(http.MethodGet)
	api.HandleFunc("/elevators/{id:[0-9]+}/call", s.callElevator).
		Methods(http.MethodPost)
	api.HandleFunc("/system-status", s.getSystemStatus).Methods(http.MethodGet)
	api.HandleFunc("/status-indicator", s.getIndicator).Methods(http.MethodGet)
	api.HandleFunc("/status-indicator", s.setIndicator).Methods(http.MethodPost)
	api.HandleFunc("/{command:start|stop}", s.command).Methods(http.MethodPost)

	return r
}

// Serve serves the API on listener until ctx is done.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(
			context.Background(), 5*time.Second)
		defer cancel()

		_ = srv.Shutdown(shutdownCtx)
	}()

	fmt.Fprintf(os.Stderr, "Telemetry service at http://%s\n", listener.Addr())

	err := srv.Serve(listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}

	return err
}

// ListenAndServe listens on addr and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	return s.Serve(ctx, listener)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.logger != nil {
			s.logger.Printf("%s %s", r.Method, r.URL.Path)
		}

		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func ack(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func decodeNumber(r *http.Request, key string) (float64, error) {
	body := map[string]any{}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return 0, err
	}

	n, ok := remote.TelemetryValue{Payload: body[key]}.Number()
	if !ok {
		return 0, fmt.Errorf("field %q is not a number", key)
	}

	return n, nil
}

func (s *Server) getValue(w http.ResponseWriter, _ *http.Request) {
	s.lock.Lock()
	v := s.value
	s.lock.Unlock()

	writeJSON(w, http.StatusOK, map[string]float64{"value": v})
}

func (s *Server) setValue(w http.ResponseWriter, r *http.Request) {
	v, err := decodeNumber(r, "value")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := s.SetValue(v); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	ack(w)
}

// SetValue sets the shared value and appends it to the history.
func (s *Server) SetValue(v float64) error {
	now := s.clock()

	s.lock.Lock()
	s.value = v
	if s.store == nil {
		s.history = append(s.history, remote.Sample{Time: now, Value: v})
		if len(s.history) > HistoryLength {
			s.history = s.history[len(s.history)-HistoryLength:]
		}
	}
	s.lock.Unlock()

	if s.store != nil {
		return s.store.RecordValue(now, v)
	}

	return nil
}

// History returns the latest samples, oldest first.
func (s *Server) History(ctx context.Context) ([]remote.Sample, error) {
	if s.store == nil {
		s.lock.Lock()
		defer s.lock.Unlock()

		return append([]remote.Sample{}, s.history...), nil
	}

	entries, err := s.store.LatestValues(ctx, HistoryLength)
	if err != nil {
		return nil, err
	}

	samples := make([]remote.Sample, len(entries))
	for i, e := range entries {
		samples[i] = remote.Sample{
			Time:  time.UnixMilli(e.Time),
			Value: e.Value,
		}
	}

	return samples, nil
}

func (s *Server) getSpeed(w http.ResponseWriter, _ *http.Request) {
	s.lock.Lock()
	v := s.speed
	s.lock.Unlock()

	writeJSON(w, http.StatusOK, map[string]float64{"speed": v})
}

func (s *Server) setSpeed(w http.ResponseWriter, r *http.Request) {
	v, err := decodeNumber(r, "speed")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	s.lock.Lock()
	s.speed = v
	s.lock.Unlock()

	ack(w)
}

func (s *Server) getHistory(w http.ResponseWriter, r *http.Request) {
	samples, err := s.History(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, samples)
}

func (s *Server) listElevators(w http.ResponseWriter, _ *http.Request) {
	ids := s.building.Elevators()
	statuses := make([]remote.ElevatorStatus, 0, len(ids))

	for _, id := range ids {
		status, err := s.building.Status(id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}

		statuses = append(statuses, status)
	}

	writeJSON(w, http.StatusOK, statuses)
}

func elevatorID(r *http.Request) int {
	id, _ := strconv.Atoi(mux.Vars(r)["id"])
	return id
}

func (s *Server) getElevator(w http.ResponseWriter, r *http.Request) {
	status, err := s.building.Status(elevatorID(r))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	writeJSON(w, http.StatusOK, status)
}

func (s *Server) callElevator(w http.ResponseWriter, r *http.Request) {
	id := elevatorID(r)

	var req remote.CallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if req.ElevatorID != 0 && req.ElevatorID != id {
		writeError(w, http.StatusBadRequest,
			fmt.Errorf("call for elevator %d posted to elevator %d",
				req.ElevatorID, id))
		return
	}

	err := s.building.Call(id, req.Floor)
	switch {
	case errors.Is(err, ErrUnknownElevator):
		writeError(w, http.StatusNotFound, err)
		return
	case errors.Is(err, ErrInvalidFloor):
		writeError(w, http.StatusBadRequest, err)
		return
	case errors.Is(err, ErrBusy):
		writeError(w, http.StatusConflict, err)
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	if s.store != nil {
		if err := s.store.RecordCall(s.clock(), id, req.Floor); err != nil {
			s.logger.Printf("cannot record call: %v", err)
		}
	}

	ack(w)
}

func (s *Server) getSystemStatus(w http.ResponseWriter, _ *http.Request) {
	s.lock.Lock()
	running := s.running
	s.lock.Unlock()

	writeJSON(w, http.StatusOK, map[string]bool{"running": running})
}

func (s *Server) getIndicator(w http.ResponseWriter, _ *http.Request) {
	s.lock.Lock()
	on := s.indicator
	s.lock.Unlock()

	writeJSON(w, http.StatusOK, map[string]bool{"value": on})
}

func (s *Server) setIndicator(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	on, ok := body["value"].(bool)
	if !ok {
		writeError(w, http.StatusBadRequest,
			errors.New(`field "value" is not a boolean`))
		return
	}

	s.lock.Lock()
	s.indicator = on
	s.lock.Unlock()

	ack(w)
}

func (s *Server) command(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["command"]

	var cmd remote.Command
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if cmd.Command != "" && cmd.Command != name {
		writeError(w, http.StatusBadRequest,
			fmt.Errorf("command %q posted to /api/%s", cmd.Command, name))
		return
	}

	if err := s.Command(name, cmd.Time); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	ack(w)
}

// Command runs a start or stop command. Start sets the system running and
// lights the status indicator; stop clears both.
func (s *Server) Command(name string, at time.Time) error {
	var running bool

	switch name {
	case remote.CommandStart:
		running = true
	case remote.CommandStop:
		running = false
	default:
		return fmt.Errorf("unknown command %q", name)
	}

	s.lock.Lock()
	s.running = running
	s.indicator = running
	s.lock.Unlock()

	if at.IsZero() {
		at = s.clock()
	}

	if s.store != nil {
		return s.store.RecordCommand(at, name)
	}

	return nil
}

// Running tells if the system has been started.
func (s *Server) Running() bool {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.running
}
