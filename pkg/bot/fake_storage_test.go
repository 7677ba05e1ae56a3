package bot

import (
	"context"
	"sort"
	"time"

	"rescuebot/pkg/models"
	"rescuebot/storage"

	"github.com/jackc/pgx/v5/pgxpool"
)

// fakeData is the shared in-memory backing for the fake repositories. It
// honors the same contracts as the postgres implementations (ErrNotFound,
// ErrWrongStatus, ErrDuplicateRequest, ErrCrewFull) so the dialog tests
// exercise the real handler logic.
type fakeData struct {
	users      []*models.User
	searches   int
	departures []*models.Departure
	tasks      map[int64][]*models.Task

	crews    map[int64]*models.Crew
	requests map[int64]*models.JoinRequest
	members  map[int64]map[int64]struct{} // crew id -> passenger ids

	nextID int64
}

func newFakeData() *fakeData {
	return &fakeData{
		tasks:    make(map[int64][]*models.Task),
		crews:    make(map[int64]*models.Crew),
		requests: make(map[int64]*models.JoinRequest),
		members:  make(map[int64]map[int64]struct{}),
		nextID:   1,
	}
}

func (d *fakeData) id() int64 {
	id := d.nextID
	d.nextID++
	return id
}

func (d *fakeData) userByID(id int64) *models.User {
	for _, u := range d.users {
		if u.ID == id {
			return u
		}
	}
	return nil
}

func (d *fakeData) crewView(c *models.Crew) *models.Crew {
	out := *c
	out.PassengerCount = len(d.members[c.ID])
	if u := d.userByID(c.DriverID); u != nil {
		out.DriverName = u.FullName()
	}
	return &out
}

type fakeStore struct{ d *fakeData }

func (f *fakeStore) User() storage.IUserStorage                   { return &fakeUsers{f.d} }
func (f *fakeStore) SearchRequest() storage.ISearchRequestStorage { return &fakeSearches{f.d} }
func (f *fakeStore) Departure() storage.IDepartureStorage         { return &fakeDepartures{f.d} }
func (f *fakeStore) Crew() storage.ICrewStorage                   { return &fakeCrews{f.d} }
func (f *fakeStore) JoinRequest() storage.IJoinRequestStorage     { return &fakeJoins{f.d} }
func (f *fakeStore) Close()                                       {}
func (f *fakeStore) GetPool() *pgxpool.Pool                       { return nil }

type fakeUsers struct{ d *fakeData }

func (f *fakeUsers) Get(_ context.Context, teleID int64) (*models.User, error) {
	for _, u := range f.d.users {
		if u.TelegramID == teleID {
			return u, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (f *fakeUsers) GetByID(_ context.Context, id int64) (*models.User, error) {
	if u := f.d.userByID(id); u != nil {
		return u, nil
	}
	return nil, storage.ErrNotFound
}

func (f *fakeUsers) GetActive(_ context.Context) ([]*models.User, error) {
	var out []*models.User
	for _, u := range f.d.users {
		if u.IsActive {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeUsers) GetActiveTelegramIDs(_ context.Context) ([]int64, error) {
	var out []int64
	for _, u := range f.d.users {
		if u.IsActive {
			out = append(out, u.TelegramID)
		}
	}
	return out, nil
}

func (f *fakeUsers) BindIdentity(_ context.Context, teleID int64, firstName, lastName string) error {
	for _, u := range f.d.users {
		if u.TelegramID == teleID {
			if u.FirstName == "" {
				u.FirstName = firstName
			}
			if u.LastName == "" {
				u.LastName = lastName
			}
			u.LastActionAt = time.Now()
			return nil
		}
	}
	return storage.ErrNotFound
}

func (f *fakeUsers) TouchLastAction(_ context.Context, teleID int64) error {
	for _, u := range f.d.users {
		if u.TelegramID == teleID {
			u.LastActionAt = time.Now()
		}
	}
	return nil
}

func (f *fakeUsers) UpdateHasCar(_ context.Context, id int64, hasCar bool) error {
	u := f.d.userByID(id)
	if u == nil {
		return storage.ErrNotFound
	}
	u.HasCar = hasCar
	return nil
}

func (f *fakeUsers) UpdateTZOffset(_ context.Context, id int64, offsetMinutes int) error {
	u := f.d.userByID(id)
	if u == nil {
		return storage.ErrNotFound
	}
	u.TZOffsetMinutes = offsetMinutes
	return nil
}

type fakeSearches struct{ d *fakeData }

func (f *fakeSearches) GetByID(_ context.Context, id int64) (*models.SearchRequest, error) {
	return nil, storage.ErrNotFound
}

func (f *fakeSearches) CountOpen(_ context.Context) (int, error) {
	return f.d.searches, nil
}

type fakeDepartures struct{ d *fakeData }

func (f *fakeDepartures) GetByID(_ context.Context, id int64) (*models.Departure, error) {
	for _, dep := range f.d.departures {
		if dep.ID == id {
			return dep, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (f *fakeDepartures) ListOpen(_ context.Context) ([]*models.Departure, error) {
	return f.d.departures, nil
}

func (f *fakeDepartures) CountOpen(_ context.Context) (int, error) {
	return len(f.d.departures), nil
}

func (f *fakeDepartures) ListTasks(_ context.Context, departureID int64) ([]*models.Task, error) {
	return f.d.tasks[departureID], nil
}

type fakeCrews struct{ d *fakeData }

func (f *fakeCrews) Create(_ context.Context, crew *models.Crew) (*models.Crew, error) {
	stored := *crew
	stored.ID = f.d.id()
	stored.CreatedAt = time.Now()
	f.d.crews[stored.ID] = &stored
	f.d.members[stored.ID] = make(map[int64]struct{})
	return f.d.crewView(&stored), nil
}

func (f *fakeCrews) Update(_ context.Context, crew *models.Crew) (*models.Crew, error) {
	existing, ok := f.d.crews[crew.ID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	existing.Title = crew.Title
	existing.PickupLocation = crew.PickupLocation
	existing.PickupDatetime = crew.PickupDatetime
	existing.PassengersMax = crew.PassengersMax
	return f.d.crewView(existing), nil
}

func (f *fakeCrews) GetByID(_ context.Context, id int64) (*models.Crew, error) {
	crew, ok := f.d.crews[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return f.d.crewView(crew), nil
}

func (f *fakeCrews) Delete(_ context.Context, id int64) error {
	crew, ok := f.d.crews[id]
	if !ok {
		return storage.ErrNotFound
	}
	if crew.Status == models.CrewStatusCompleted {
		return storage.ErrWrongStatus
	}
	delete(f.d.crews, id)
	delete(f.d.members, id)
	for reqID, jr := range f.d.requests {
		if jr.CrewID == id {
			delete(f.d.requests, reqID)
		}
	}
	return nil
}

func (f *fakeCrews) GetActiveByDriver(_ context.Context, driverID int64) (*models.Crew, error) {
	for _, crew := range f.d.crews {
		if crew.DriverID == driverID && crew.Status != models.CrewStatusCompleted {
			return f.d.crewView(crew), nil
		}
	}
	return nil, storage.ErrNotFound
}

func (f *fakeCrews) GetCompletedByDriver(_ context.Context, driverID int64) (*models.Crew, error) {
	for _, crew := range f.d.crews {
		if crew.DriverID == driverID && crew.Status == models.CrewStatusCompleted {
			return f.d.crewView(crew), nil
		}
	}
	return nil, storage.ErrNotFound
}

func (f *fakeCrews) ListAvailable(_ context.Context) ([]*models.Crew, error) {
	var out []*models.Crew
	for _, crew := range f.d.crews {
		if crew.Status == models.CrewStatusAvailable {
			out = append(out, f.d.crewView(crew))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeCrews) ListAvailableByDistance(ctx context.Context, from models.Point) ([]*models.Crew, error) {
	out, err := f.ListAvailable(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		return from.DistanceKm(out[i].PickupLocation) < from.DistanceKm(out[j].PickupLocation)
	})
	return out, nil
}

func (f *fakeCrews) AdvanceStatus(_ context.Context, id int64, from, to string) error {
	crew, ok := f.d.crews[id]
	if !ok {
		return storage.ErrNotFound
	}
	if crew.Status != from {
		return storage.ErrWrongStatus
	}
	crew.Status = to
	now := time.Now()
	switch to {
	case models.CrewStatusOnMission:
		crew.DepartureDatetime = &now
	case models.CrewStatusReturning:
		crew.ReturnDatetime = &now
	}
	return nil
}

func (f *fakeCrews) ListPassengers(_ context.Context, crewID int64) ([]*models.User, error) {
	var out []*models.User
	for id := range f.d.members[crewID] {
		if u := f.d.userByID(id); u != nil {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeCrews) RemovePassenger(_ context.Context, crewID, userID int64) error {
	if set, ok := f.d.members[crewID]; ok {
		delete(set, userID)
	}
	return nil
}

type fakeJoins struct{ d *fakeData }

func (f *fakeJoins) Create(_ context.Context, crewID, passengerID int64) (*models.JoinRequest, error) {
	for _, jr := range f.d.requests {
		if jr.CrewID == crewID && jr.PassengerID == passengerID {
			return nil, storage.ErrDuplicateRequest
		}
	}

	jr := &models.JoinRequest{
		ID:          f.d.id(),
		CrewID:      crewID,
		PassengerID: passengerID,
		Status:      models.JoinStatusPending,
		RequestTime: time.Now(),
	}
	if u := f.d.userByID(passengerID); u != nil {
		jr.PassengerName = u.FullName()
	}
	f.d.requests[jr.ID] = jr
	return jr, nil
}

func (f *fakeJoins) GetByID(_ context.Context, id int64) (*models.JoinRequest, error) {
	jr, ok := f.d.requests[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return jr, nil
}

func (f *fakeJoins) GetByCrewAndPassenger(_ context.Context, crewID, passengerID int64) (*models.JoinRequest, error) {
	for _, jr := range f.d.requests {
		if jr.CrewID == crewID && jr.PassengerID == passengerID {
			return jr, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (f *fakeJoins) ListByCrew(_ context.Context, crewID int64) ([]*models.JoinRequest, error) {
	var out []*models.JoinRequest
	for _, jr := range f.d.requests {
		if jr.CrewID == crewID {
			out = append(out, jr)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeJoins) ListByPassenger(_ context.Context, passengerID int64) ([]*models.JoinRequest, error) {
	var out []*models.JoinRequest
	for _, jr := range f.d.requests {
		if jr.PassengerID == passengerID {
			out = append(out, jr)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeJoins) Delete(_ context.Context, id int64) error {
	if _, ok := f.d.requests[id]; !ok {
		return storage.ErrNotFound
	}
	delete(f.d.requests, id)
	return nil
}

func (f *fakeJoins) Accept(_ context.Context, requestID int64) error {
	jr, ok := f.d.requests[requestID]
	if !ok {
		return storage.ErrNotFound
	}
	crew, ok := f.d.crews[jr.CrewID]
	if !ok {
		return storage.ErrNotFound
	}

	set := f.d.members[crew.ID]
	if set == nil {
		set = make(map[int64]struct{})
		f.d.members[crew.ID] = set
	}
	if _, already := set[jr.PassengerID]; !already && len(set) >= crew.PassengersMax {
		return storage.ErrCrewFull
	}

	jr.Status = models.JoinStatusAccepted
	set[jr.PassengerID] = struct{}{}
	return nil
}

func (f *fakeJoins) Reject(_ context.Context, requestID int64) error {
	jr, ok := f.d.requests[requestID]
	if !ok {
		return storage.ErrNotFound
	}
	jr.Status = models.JoinStatusRejected
	if set, ok := f.d.members[jr.CrewID]; ok {
		delete(set, jr.PassengerID)
	}
	return nil
}

func (f *fakeJoins) CountActive(_ context.Context, crewID int64) (int, error) {
	n := 0
	for _, jr := range f.d.requests {
		if jr.CrewID == crewID && jr.Status != models.JoinStatusRejected {
			n++
		}
	}
	return n, nil
}
