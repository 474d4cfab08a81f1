package device

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/edmondoalex/buspro-core/internal/bridges/buspro"
)

// Logger defines the logging interface used by the Registry.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// sensorKey disambiguates sensors: different kinds may share an address,
// uniqueness holds within one kind.
type sensorKey struct {
	kind Kind
	addr buspro.ChannelAddress
}

// ChangeListener is notified after every mutation with the affected kind.
// The core schedules store flush, discovery republish, and the WebSocket
// devices broadcast from here.
type ChangeListener func(kind Kind)

// Registry holds all typed device records.
//
// All public methods are thread-safe. Returned slices are copies sorted by
// address (groups by name), so callers can iterate without further locking.
type Registry struct {
	mu          sync.RWMutex
	lights      map[buspro.ChannelAddress]Light
	covers      map[buspro.ChannelAddress]Cover
	sensors     map[sensorKey]Sensor
	dryContacts map[buspro.ChannelAddress]DryContact
	groups      map[string]CoverGroup

	onChange ChangeListener
	logger   Logger
}

// NewRegistry creates an empty device registry.
func NewRegistry() *Registry {
	return &Registry{
		lights:      make(map[buspro.ChannelAddress]Light),
		covers:      make(map[buspro.ChannelAddress]Cover),
		sensors:     make(map[sensorKey]Sensor),
		dryContacts: make(map[buspro.ChannelAddress]DryContact),
		groups:      make(map[string]CoverGroup),
		logger:      noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// SetOnChange registers the mutation listener.
func (r *Registry) SetOnChange(cb ChangeListener) {
	r.onChange = cb
}

func (r *Registry) notify(kind Kind) {
	if r.onChange != nil {
		r.onChange(kind)
	}
}

// Load replaces the registry contents from a persisted snapshot.
// No change notifications fire; Load runs before listeners are wired.
func (r *Registry) Load(devices Devices, groups []CoverGroup) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lights = make(map[buspro.ChannelAddress]Light, len(devices.Lights))
	for _, l := range devices.Lights {
		r.lights[l.Address] = l
	}
	r.covers = make(map[buspro.ChannelAddress]Cover, len(devices.Covers))
	for _, c := range devices.Covers {
		r.covers[c.Address] = c
	}
	r.sensors = make(map[sensorKey]Sensor, len(devices.Sensors))
	for _, s := range devices.Sensors {
		r.sensors[sensorKey{kind: s.Kind, addr: s.Address}] = s
	}
	r.dryContacts = make(map[buspro.ChannelAddress]DryContact, len(devices.DryContacts))
	for _, d := range devices.DryContacts {
		r.dryContacts[d.Address] = d
	}
	r.groups = make(map[string]CoverGroup, len(groups))
	for _, g := range groups {
		if g.ID == "" {
			g.ID = uuid.NewString()
		}
		r.groups[g.ID] = g
	}
}

// Snapshot exports all device records for persistence.
func (r *Registry) Snapshot() Devices {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return Devices{
		Lights:      sortedByAddress(r.lights, func(l Light) buspro.ChannelAddress { return l.Address }),
		Covers:      sortedByAddress(r.covers, func(c Cover) buspro.ChannelAddress { return c.Address }),
		Sensors:     r.sortedSensorsLocked(),
		DryContacts: sortedByAddress(r.dryContacts, func(d DryContact) buspro.ChannelAddress { return d.Address }),
	}
}

// --- Lights ---

// AddLight adds a new light. The address must be unused within the kind.
func (r *Registry) AddLight(l Light) error {
	if err := ValidateLight(&l); err != nil {
		return err
	}

	r.mu.Lock()
	if _, exists := r.lights[l.Address]; exists {
		r.mu.Unlock()
		return fmt.Errorf("%w: light %s", ErrConflict, l.Address)
	}
	r.lights[l.Address] = l
	r.mu.Unlock()

	r.logger.Info("light added", "addr", l.Address.String(), "name", l.Name)
	r.notify(KindLight)
	return nil
}

// UpdateLight replaces the light at oldAddr. Changing the address migrates
// the record; a collision with another light yields ErrConflict.
func (r *Registry) UpdateLight(oldAddr buspro.ChannelAddress, l Light) error {
	if err := ValidateLight(&l); err != nil {
		return err
	}

	r.mu.Lock()
	if _, exists := r.lights[oldAddr]; !exists {
		r.mu.Unlock()
		return fmt.Errorf("%w: light %s", ErrNotFound, oldAddr)
	}
	if l.Address != oldAddr {
		if _, exists := r.lights[l.Address]; exists {
			r.mu.Unlock()
			return fmt.Errorf("%w: light %s", ErrConflict, l.Address)
		}
		delete(r.lights, oldAddr)
	}
	r.lights[l.Address] = l
	r.mu.Unlock()

	r.notify(KindLight)
	return nil
}

// DeleteLight removes a light.
func (r *Registry) DeleteLight(addr buspro.ChannelAddress) error {
	r.mu.Lock()
	if _, exists := r.lights[addr]; !exists {
		r.mu.Unlock()
		return fmt.Errorf("%w: light %s", ErrNotFound, addr)
	}
	delete(r.lights, addr)
	r.mu.Unlock()

	r.logger.Info("light deleted", "addr", addr.String())
	r.notify(KindLight)
	return nil
}

// GetLight retrieves a light by address.
func (r *Registry) GetLight(addr buspro.ChannelAddress) (Light, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.lights[addr]
	if !ok {
		return Light{}, fmt.Errorf("%w: light %s", ErrNotFound, addr)
	}
	return l, nil
}

// Lights returns all lights sorted by address.
func (r *Registry) Lights() []Light {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedByAddress(r.lights, func(l Light) buspro.ChannelAddress { return l.Address })
}

// --- Covers ---

// AddCover adds a new cover.
func (r *Registry) AddCover(c Cover) error {
	if err := ValidateCover(&c); err != nil {
		return err
	}

	r.mu.Lock()
	if _, exists := r.covers[c.Address]; exists {
		r.mu.Unlock()
		return fmt.Errorf("%w: cover %s", ErrConflict, c.Address)
	}
	r.covers[c.Address] = c
	r.mu.Unlock()

	r.logger.Info("cover added", "addr", c.Address.String(), "name", c.Name)
	r.notify(KindCover)
	return nil
}

// UpdateCover replaces the cover at oldAddr, migrating on address change.
func (r *Registry) UpdateCover(oldAddr buspro.ChannelAddress, c Cover) error {
	if err := ValidateCover(&c); err != nil {
		return err
	}

	r.mu.Lock()
	if _, exists := r.covers[oldAddr]; !exists {
		r.mu.Unlock()
		return fmt.Errorf("%w: cover %s", ErrNotFound, oldAddr)
	}
	if c.Address != oldAddr {
		if _, exists := r.covers[c.Address]; exists {
			r.mu.Unlock()
			return fmt.Errorf("%w: cover %s", ErrConflict, c.Address)
		}
		delete(r.covers, oldAddr)
	}
	r.covers[c.Address] = c
	r.mu.Unlock()

	r.notify(KindCover)
	return nil
}

// DeleteCover removes a cover.
func (r *Registry) DeleteCover(addr buspro.ChannelAddress) error {
	r.mu.Lock()
	if _, exists := r.covers[addr]; !exists {
		r.mu.Unlock()
		return fmt.Errorf("%w: cover %s", ErrNotFound, addr)
	}
	delete(r.covers, addr)
	r.mu.Unlock()

	r.logger.Info("cover deleted", "addr", addr.String())
	r.notify(KindCover)
	return nil
}

// GetCover retrieves a cover by address.
func (r *Registry) GetCover(addr buspro.ChannelAddress) (Cover, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.covers[addr]
	if !ok {
		return Cover{}, fmt.Errorf("%w: cover %s", ErrNotFound, addr)
	}
	return c, nil
}

// Covers returns all covers sorted by address.
func (r *Registry) Covers() []Cover {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedByAddress(r.covers, func(c Cover) buspro.ChannelAddress { return c.Address })
}

// --- Sensors ---

// AddSensor adds a new sensor. Uniqueness holds per (kind, address).
func (r *Registry) AddSensor(s Sensor) error {
	if err := ValidateSensor(&s); err != nil {
		return err
	}

	key := sensorKey{kind: s.Kind, addr: s.Address}
	r.mu.Lock()
	if _, exists := r.sensors[key]; exists {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s %s", ErrConflict, s.Kind, s.Address)
	}
	r.sensors[key] = s
	r.mu.Unlock()

	r.logger.Info("sensor added", "kind", string(s.Kind), "addr", s.Address.String(), "name", s.Name)
	r.notify(s.Kind)
	return nil
}

// UpdateSensor replaces the sensor at (kind, oldAddr).
func (r *Registry) UpdateSensor(oldAddr buspro.ChannelAddress, s Sensor) error {
	if err := ValidateSensor(&s); err != nil {
		return err
	}

	oldKey := sensorKey{kind: s.Kind, addr: oldAddr}
	newKey := sensorKey{kind: s.Kind, addr: s.Address}

	r.mu.Lock()
	if _, exists := r.sensors[oldKey]; !exists {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s %s", ErrNotFound, s.Kind, oldAddr)
	}
	if newKey != oldKey {
		if _, exists := r.sensors[newKey]; exists {
			r.mu.Unlock()
			return fmt.Errorf("%w: %s %s", ErrConflict, s.Kind, s.Address)
		}
		delete(r.sensors, oldKey)
	}
	r.sensors[newKey] = s
	r.mu.Unlock()

	r.notify(s.Kind)
	return nil
}

// DeleteSensor removes a sensor.
func (r *Registry) DeleteSensor(kind Kind, addr buspro.ChannelAddress) error {
	key := sensorKey{kind: kind, addr: addr}
	r.mu.Lock()
	if _, exists := r.sensors[key]; !exists {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s %s", ErrNotFound, kind, addr)
	}
	delete(r.sensors, key)
	r.mu.Unlock()

	r.logger.Info("sensor deleted", "kind", string(kind), "addr", addr.String())
	r.notify(kind)
	return nil
}

// GetSensor retrieves a sensor by kind and address.
func (r *Registry) GetSensor(kind Kind, addr buspro.ChannelAddress) (Sensor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sensors[sensorKey{kind: kind, addr: addr}]
	if !ok {
		return Sensor{}, fmt.Errorf("%w: %s %s", ErrNotFound, kind, addr)
	}
	return s, nil
}

// Sensors returns all sensors of a kind sorted by address.
// An empty kind returns every sensor.
func (r *Registry) Sensors(kind Kind) []Sensor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Sensor
	for key, s := range r.sensors {
		if kind == "" || key.kind == kind {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return lessAddress(out[i].Address, out[j].Address)
	})
	return out
}

// SensorsByModule returns sensors of a kind on the given module, keyed by
// sensor slot. Used by the telegram dispatch path.
func (r *Registry) SensorsByModule(kind Kind, module buspro.DeviceAddress) []Sensor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Sensor
	for key, s := range r.sensors {
		if key.kind == kind && key.addr.DeviceAddress() == module {
			out = append(out, s)
		}
	}
	return out
}

// --- Dry contacts ---

// AddDryContact adds a new dry-contact input.
func (r *Registry) AddDryContact(d DryContact) error {
	if err := ValidateDryContact(&d); err != nil {
		return err
	}

	r.mu.Lock()
	if _, exists := r.dryContacts[d.Address]; exists {
		r.mu.Unlock()
		return fmt.Errorf("%w: dry_contact %s", ErrConflict, d.Address)
	}
	r.dryContacts[d.Address] = d
	r.mu.Unlock()

	r.logger.Info("dry contact added", "addr", d.Address.String(), "name", d.Name)
	r.notify(KindDryContact)
	return nil
}

// UpdateDryContact replaces the record at oldAddr.
func (r *Registry) UpdateDryContact(oldAddr buspro.ChannelAddress, d DryContact) error {
	if err := ValidateDryContact(&d); err != nil {
		return err
	}

	r.mu.Lock()
	if _, exists := r.dryContacts[oldAddr]; !exists {
		r.mu.Unlock()
		return fmt.Errorf("%w: dry_contact %s", ErrNotFound, oldAddr)
	}
	if d.Address != oldAddr {
		if _, exists := r.dryContacts[d.Address]; exists {
			r.mu.Unlock()
			return fmt.Errorf("%w: dry_contact %s", ErrConflict, d.Address)
		}
		delete(r.dryContacts, oldAddr)
	}
	r.dryContacts[d.Address] = d
	r.mu.Unlock()

	r.notify(KindDryContact)
	return nil
}

// DeleteDryContact removes a dry-contact input.
func (r *Registry) DeleteDryContact(addr buspro.ChannelAddress) error {
	r.mu.Lock()
	if _, exists := r.dryContacts[addr]; !exists {
		r.mu.Unlock()
		return fmt.Errorf("%w: dry_contact %s", ErrNotFound, addr)
	}
	delete(r.dryContacts, addr)
	r.mu.Unlock()

	r.logger.Info("dry contact deleted", "addr", addr.String())
	r.notify(KindDryContact)
	return nil
}

// GetDryContact retrieves a dry-contact input by address.
func (r *Registry) GetDryContact(addr buspro.ChannelAddress) (DryContact, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.dryContacts[addr]
	if !ok {
		return DryContact{}, fmt.Errorf("%w: dry_contact %s", ErrNotFound, addr)
	}
	return d, nil
}

// DryContacts returns all dry-contact inputs sorted by address.
func (r *Registry) DryContacts() []DryContact {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedByAddress(r.dryContacts, func(d DryContact) buspro.ChannelAddress { return d.Address })
}

// --- Cover groups ---

// UpsertCoverGroup creates or updates a cover group.
//
// A new group gets a UUID; the ID of an existing group never changes, so
// renames keep MQTT topics and platform entities stable.
func (r *Registry) UpsertCoverGroup(g CoverGroup) (CoverGroup, error) {
	if err := ValidateCoverGroup(&g); err != nil {
		return CoverGroup{}, err
	}

	r.mu.Lock()
	if g.ID == "" {
		g.ID = uuid.NewString()
	} else if existing, ok := r.groups[g.ID]; ok {
		// Preserve the stable ID regardless of payload.
		g.ID = existing.ID
	}
	r.groups[g.ID] = g
	r.mu.Unlock()

	r.logger.Info("cover group saved", "id", g.ID, "name", g.Name, "members", len(g.Members))
	r.notify(KindCoverGroup)
	return g, nil
}

// DeleteCoverGroup removes a cover group by ID.
func (r *Registry) DeleteCoverGroup(id string) error {
	r.mu.Lock()
	if _, exists := r.groups[id]; !exists {
		r.mu.Unlock()
		return fmt.Errorf("%w: cover_group %s", ErrNotFound, id)
	}
	delete(r.groups, id)
	r.mu.Unlock()

	r.logger.Info("cover group deleted", "id", id)
	r.notify(KindCoverGroup)
	return nil
}

// GetCoverGroup retrieves a cover group by ID.
func (r *Registry) GetCoverGroup(id string) (CoverGroup, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.groups[id]
	if !ok {
		return CoverGroup{}, fmt.Errorf("%w: cover_group %s", ErrNotFound, id)
	}
	return g, nil
}

// CoverGroups returns all groups sorted by name.
func (r *Registry) CoverGroups() []CoverGroup {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]CoverGroup, 0, len(r.groups))
	for _, g := range r.groups {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// --- Maintenance ---

// Dedupe is a no-op safeguard for stores written by older versions that
// could accumulate duplicate records per address. The maps already enforce
// one record per key; this re-notifies so downstream surfaces resync.
// Returns the device counts per kind after the pass.
func (r *Registry) Dedupe() map[Kind]int {
	r.mu.RLock()
	counts := map[Kind]int{
		KindLight:      len(r.lights),
		KindCover:      len(r.covers),
		KindDryContact: len(r.dryContacts),
		KindCoverGroup: len(r.groups),
	}
	for key := range r.sensors {
		counts[key.kind]++
	}
	r.mu.RUnlock()

	for _, k := range []Kind{KindLight, KindCover, KindDryContact} {
		r.notify(k)
	}
	for _, k := range SensorKinds() {
		r.notify(k)
	}
	return counts
}

// Counts returns per-kind device totals.
func (r *Registry) Counts() map[Kind]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := map[Kind]int{
		KindLight:      len(r.lights),
		KindCover:      len(r.covers),
		KindDryContact: len(r.dryContacts),
		KindCoverGroup: len(r.groups),
	}
	for key := range r.sensors {
		counts[key.kind]++
	}
	return counts
}

// --- Helpers ---

func lessAddress(a, b buspro.ChannelAddress) bool {
	if a.Subnet != b.Subnet {
		return a.Subnet < b.Subnet
	}
	if a.Device != b.Device {
		return a.Device < b.Device
	}
	return a.Channel < b.Channel
}

func sortedByAddress[T any](m map[buspro.ChannelAddress]T, addr func(T) buspro.ChannelAddress) []T {
	out := make([]T, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return lessAddress(addr(out[i]), addr(out[j])) })
	return out
}

func (r *Registry) sortedSensorsLocked() []Sensor {
	out := make([]Sensor, 0, len(r.sensors))
	for _, s := range r.sensors {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return lessAddress(out[i].Address, out[j].Address)
	})
	return out
}
