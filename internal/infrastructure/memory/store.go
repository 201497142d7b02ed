// Package memory implementa los puertos de persistencia en memoria
// (DB_DRIVER=memory y tests). Las transacciones bloquean filas de RMA como
// SELECT ... FOR UPDATE y los cambios se aplican solo al confirmar.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jhoicas/rma-api/internal/domain"
	"github.com/jhoicas/rma-api/internal/domain/entity"
	"github.com/jhoicas/rma-api/internal/domain/reminder"
	"github.com/jhoicas/rma-api/internal/domain/repository"
)

var (
	_ repository.RMARepository     = (*RMARepo)(nil)
	_ repository.UserRepository    = (*UserRepo)(nil)
	_ repository.CountryRepository = (*CountryRepo)(nil)
	_ repository.BrandRepository   = (*BrandRepo)(nil)
	_ repository.ProductRepository = (*ProductRepo)(nil)
)

// Hooks permiten inyectar fallos desde los tests. Nil = sin efecto.
type Hooks struct {
	BeforeRMAUpdate     func(r *entity.RMA) error
	BeforeReminderMark  func(id string) error
	AfterReminderLookup func(id string)
}

// Store datos en memoria compartidos por todos los repos.
type Store struct {
	mu        sync.RWMutex
	rowMu     sync.Mutex
	locked    map[string]chan struct{} // filas de RMA tomadas por una tx
	users     map[string]*entity.User
	countries map[string]*entity.Country
	brands    map[string]*entity.Brand
	products  map[string]*entity.Product
	rmas      map[string]*entity.RMA

	Hooks Hooks
}

// NewStore crea un store vacío.
func NewStore() *Store {
	return &Store{
		users:     make(map[string]*entity.User),
		countries: make(map[string]*entity.Country),
		brands:    make(map[string]*entity.Brand),
		products:  make(map[string]*entity.Product),
		rmas:      make(map[string]*entity.RMA),
		locked:    make(map[string]chan struct{}),
	}
}

// Users repositorio de usuarios.
func (s *Store) Users() *UserRepo { return &UserRepo{s: s} }

// RMAs repositorio de RMAs fuera de transacción.
func (s *Store) RMAs() *RMARepo { return &RMARepo{s: s} }

// Countries repositorio de países.
func (s *Store) Countries() *CountryRepo { return &CountryRepo{s: s} }

// Brands repositorio de marcas.
func (s *Store) Brands() *BrandRepo { return &BrandRepo{s: s} }

// Products repositorio de productos.
func (s *Store) Products() *ProductRepo { return &ProductRepo{s: s} }

// Run ejecuta fn en una transacción. Las escrituras de RMA se aplican al
// store solo si fn no devuelve error; las filas bloqueadas se liberan después
// de confirmar. Dos tx solo se esperan si tocan el mismo RMA.
func (s *Store) Run(ctx context.Context, fn func(rmaRepo repository.RMARepository) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &RMARepo{s: s, pending: make(map[string]*entity.RMA), held: make(map[string]bool)}
	defer tx.release()
	if err := fn(tx); err != nil {
		return err
	}
	s.mu.Lock()
	for id, r := range tx.pending {
		s.rmas[id] = r
	}
	s.mu.Unlock()
	return nil
}

// lockRow toma la fila id. Con wait=false no espera y devuelve false si otra
// tx la tiene (SKIP LOCKED).
func (s *Store) lockRow(ctx context.Context, id string, wait bool) (bool, error) {
	for {
		s.rowMu.Lock()
		busy, ok := s.locked[id]
		if !ok {
			s.locked[id] = make(chan struct{})
			s.rowMu.Unlock()
			return true, nil
		}
		s.rowMu.Unlock()
		if !wait {
			return false, nil
		}
		select {
		case <-busy:
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
}

func (s *Store) unlockRow(id string) {
	s.rowMu.Lock()
	defer s.rowMu.Unlock()
	if ch, ok := s.locked[id]; ok {
		delete(s.locked, id)
		close(ch)
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Users
// ──────────────────────────────────────────────────────────────────────────────

// UserRepo repositorio de usuarios en memoria.
type UserRepo struct{ s *Store }

// Create persiste un usuario; el email es único sin distinguir mayúsculas.
func (r *UserRepo) Create(_ context.Context, user *entity.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, user.Email) {
			return domain.ErrEmailAlreadyExists
		}
	}
	r.s.users[user.ID] = r.s.joinUser(cloneUser(user))
	return nil
}

// GetByID obtiene un usuario por ID.
func (r *UserRepo) GetByID(_ context.Context, id string) (*entity.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, nil
	}
	return cloneUser(u), nil
}

// GetByEmail obtiene un usuario por email.
func (r *UserRepo) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, email) {
			return cloneUser(u), nil
		}
	}
	return nil, nil
}

// Update actualiza datos de perfil, rol y estado.
func (r *UserRepo) Update(_ context.Context, user *entity.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.users[user.ID]
	if !ok {
		return domain.ErrUserNotFound
	}
	next := cloneUser(user)
	next.Countries = cur.Countries
	r.s.users[user.ID] = next
	return nil
}

// List lista usuarios visibles según el filtro.
func (r *UserRepo) List(_ context.Context, q repository.UserQuery) ([]*entity.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	all := r.matchUsers(q)
	return page(all, q.Limit, q.Offset), nil
}

// Count cuenta usuarios visibles según el filtro.
func (r *UserRepo) Count(_ context.Context, q repository.UserQuery) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return len(r.matchUsers(q)), nil
}

func (r *UserRepo) matchUsers(q repository.UserQuery) []*entity.User {
	search := strings.ToLower(q.Search)
	var out []*entity.User
	for _, u := range r.s.users {
		if !q.Filter.AllowsUser(u) {
			continue
		}
		if search != "" && !containsAny(search, u.FirstName, u.LastName, u.Email, u.Company) {
			continue
		}
		out = append(out, cloneUser(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// SetCountries reemplaza los países del usuario.
func (r *UserRepo) SetCountries(_ context.Context, userID string, countryIDs []string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	countries := make([]entity.Country, 0, len(countryIDs))
	for _, id := range countryIDs {
		c, ok := r.s.countries[id]
		if !ok {
			return domain.ErrCountryNotFound
		}
		countries = append(countries, *c)
	}
	u.Countries = countries
	return nil
}

func (s *Store) joinUser(u *entity.User) *entity.User {
	for i, c := range u.Countries {
		if full, ok := s.countries[c.ID]; ok {
			u.Countries[i] = *full
		}
	}
	return u
}

// ──────────────────────────────────────────────────────────────────────────────
// Countries
// ──────────────────────────────────────────────────────────────────────────────

// CountryRepo repositorio de países en memoria.
type CountryRepo struct{ s *Store }

// Create persiste un país; el nombre es único.
func (r *CountryRepo) Create(_ context.Context, c *entity.Country) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.countries {
		if strings.EqualFold(existing.Name, c.Name) {
			return domain.NewError(domain.ErrConflict, "Ya existe un país con ese nombre")
		}
	}
	cp := *c
	r.s.countries[c.ID] = &cp
	return nil
}

// GetByID obtiene un país por ID.
func (r *CountryRepo) GetByID(_ context.Context, id string) (*entity.Country, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.countries[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

// GetByName obtiene un país por nombre.
func (r *CountryRepo) GetByName(_ context.Context, name string) (*entity.Country, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, c := range r.s.countries {
		if strings.EqualFold(c.Name, name) {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

// List lista los países por nombre.
func (r *CountryRepo) List(_ context.Context) ([]*entity.Country, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*entity.Country, 0, len(r.s.countries))
	for _, c := range r.s.countries {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Delete elimina un país.
func (r *CountryRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.countries, id)
	return nil
}

// IsReferenced indica si el país está en uso.
func (r *CountryRepo) IsReferenced(_ context.Context, id string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		for _, c := range u.Countries {
			if c.ID == id {
				return true, nil
			}
		}
	}
	for _, b := range r.s.brands {
		if containsID(b.CountryIDs, id) {
			return true, nil
		}
	}
	for _, p := range r.s.products {
		if containsID(p.CountryIDs, id) {
			return true, nil
		}
	}
	for _, rm := range r.s.rmas {
		if rm.CountryID == id {
			return true, nil
		}
	}
	return false, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Brands / Products
// ──────────────────────────────────────────────────────────────────────────────

// BrandRepo repositorio de marcas en memoria.
type BrandRepo struct{ s *Store }

// Create persiste una marca; el nombre es único sin distinguir mayúsculas.
func (r *BrandRepo) Create(_ context.Context, b *entity.Brand) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.check(b); err != nil {
		return err
	}
	r.s.brands[b.ID] = cloneBrand(b)
	return nil
}

// GetByID obtiene una marca por ID.
func (r *BrandRepo) GetByID(_ context.Context, id string) (*entity.Brand, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	b, ok := r.s.brands[id]
	if !ok {
		return nil, nil
	}
	return cloneBrand(b), nil
}

// GetByName obtiene una marca por nombre.
func (r *BrandRepo) GetByName(_ context.Context, name string) (*entity.Brand, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, b := range r.s.brands {
		if strings.EqualFold(b.Name, name) {
			return cloneBrand(b), nil
		}
	}
	return nil, nil
}

// List lista marcas ofrecidas en algún país del filtro.
func (r *BrandRepo) List(_ context.Context, q repository.BrandQuery) ([]*entity.Brand, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	needle := strings.ToLower(q.Search)
	out := []*entity.Brand{}
	for _, b := range r.s.brands {
		if !q.Filter.AllowsAnyCountry(b.CountryIDs) {
			continue
		}
		if needle != "" && !containsAny(needle, b.Name) {
			continue
		}
		out = append(out, cloneBrand(b))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Update reemplaza nombre y países.
func (r *BrandRepo) Update(_ context.Context, b *entity.Brand) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.brands[b.ID]; !ok {
		return domain.ErrBrandNotFound
	}
	if err := r.check(b); err != nil {
		return err
	}
	r.s.brands[b.ID] = cloneBrand(b)
	return nil
}

// Delete elimina la marca si no tiene productos.
func (r *BrandRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.brands[id]; !ok {
		return domain.ErrBrandNotFound
	}
	for _, p := range r.s.products {
		if p.BrandID == id {
			return domain.NewError(domain.ErrConflict, "No se puede eliminar la marca porque tiene productos asociados")
		}
	}
	delete(r.s.brands, id)
	return nil
}

// check nombre único y países existentes. Requiere r.s.mu.
func (r *BrandRepo) check(b *entity.Brand) error {
	for _, other := range r.s.brands {
		if other.ID != b.ID && strings.EqualFold(other.Name, b.Name) {
			return domain.ErrBrandNameTaken
		}
	}
	return r.s.checkCountries(b.CountryIDs)
}

// ProductRepo repositorio de productos en memoria.
type ProductRepo struct{ s *Store }

// Create persiste un producto; el nombre es único por marca.
func (r *ProductRepo) Create(_ context.Context, p *entity.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.check(p); err != nil {
		return err
	}
	r.s.products[p.ID] = cloneProduct(p)
	return nil
}

// GetByID obtiene un producto con el nombre de su marca.
func (r *ProductRepo) GetByID(_ context.Context, id string) (*entity.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.products[id]
	if !ok {
		return nil, nil
	}
	return r.join(p), nil
}

// GetByIDs obtiene los productos existentes entre ids.
func (r *ProductRepo) GetByIDs(_ context.Context, ids []string) ([]*entity.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*entity.Product
	for _, id := range ids {
		if p, ok := r.s.products[id]; ok {
			out = append(out, r.join(p))
		}
	}
	return out, nil
}

// List lista productos según filtro, marca y búsqueda.
func (r *ProductRepo) List(_ context.Context, q repository.ProductQuery) ([]*entity.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	needle := strings.ToLower(q.Search)
	out := []*entity.Product{}
	for _, p := range r.s.products {
		if !q.Filter.AllowsAnyCountry(p.CountryIDs) {
			continue
		}
		if q.BrandID != "" && p.BrandID != q.BrandID {
			continue
		}
		joined := r.join(p)
		if needle != "" && !containsAny(needle, joined.Name, joined.BrandName) {
			continue
		}
		out = append(out, joined)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Update reemplaza nombre, marca y países.
func (r *ProductRepo) Update(_ context.Context, p *entity.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.products[p.ID]; !ok {
		return domain.ErrProductNotFound
	}
	if err := r.check(p); err != nil {
		return err
	}
	r.s.products[p.ID] = cloneProduct(p)
	return nil
}

// Delete elimina el producto si ningún RMA lo usa.
func (r *ProductRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.products[id]; !ok {
		return domain.ErrProductNotFound
	}
	for _, rm := range r.s.rmas {
		for _, line := range rm.Products {
			if line.ProductID == id {
				return domain.NewError(domain.ErrConflict, "No se puede eliminar el producto porque tiene RMAs asociados")
			}
		}
	}
	delete(r.s.products, id)
	return nil
}

// check marca existente, nombre único por marca y países existentes. Requiere r.s.mu.
func (r *ProductRepo) check(p *entity.Product) error {
	if _, ok := r.s.brands[p.BrandID]; !ok {
		return domain.ErrBrandNotFound
	}
	for _, other := range r.s.products {
		if other.ID != p.ID && other.BrandID == p.BrandID && strings.EqualFold(other.Name, p.Name) {
			return domain.ErrProductNameTaken
		}
	}
	return r.s.checkCountries(p.CountryIDs)
}

func (r *ProductRepo) join(p *entity.Product) *entity.Product {
	cp := cloneProduct(p)
	if b, ok := r.s.brands[p.BrandID]; ok {
		cp.BrandName = b.Name
	}
	return cp
}

// checkCountries ErrCountryNotFound si algún país no existe. Requiere s.mu.
func (s *Store) checkCountries(ids []string) error {
	for _, id := range ids {
		if _, ok := s.countries[id]; !ok {
			return domain.ErrCountryNotFound
		}
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// RMAs
// ──────────────────────────────────────────────────────────────────────────────

// RMARepo repositorio de RMAs. Con pending != nil opera dentro de Run.
type RMARepo struct {
	s       *Store
	pending map[string]*entity.RMA
	held    map[string]bool
}

// lock bloquea la fila dentro de la tx; fuera de Run no hace nada.
func (r *RMARepo) lock(ctx context.Context, id string, wait bool) (bool, error) {
	if r.pending == nil || r.held[id] {
		return true, nil
	}
	ok, err := r.s.lockRow(ctx, id, wait)
	if ok {
		r.held[id] = true
	}
	return ok, err
}

func (r *RMARepo) release() {
	for id := range r.held {
		r.s.unlockRow(id)
	}
}

// Create persiste el RMA y sus productos.
func (r *RMARepo) Create(_ context.Context, rm *entity.RMA) error {
	cp := rm.Clone()
	if r.pending != nil {
		r.pending[rm.ID] = cp
		return nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.rmas[rm.ID] = cp
	return nil
}

// GetByID obtiene el RMA con dueño, país y productos.
func (r *RMARepo) GetByID(_ context.Context, id string) (*entity.RMA, error) {
	return r.get(id), nil
}

// GetForUpdate bloquea la fila hasta el fin de la tx, esperando a la tx que
// la tenga, y la relee.
func (r *RMARepo) GetForUpdate(ctx context.Context, id string) (*entity.RMA, error) {
	if _, err := r.lock(ctx, id, true); err != nil {
		return nil, err
	}
	return r.get(id), nil
}

func (r *RMARepo) get(id string) *entity.RMA {
	if r.pending != nil {
		if p, ok := r.pending[id]; ok {
			r.s.mu.RLock()
			defer r.s.mu.RUnlock()
			return r.s.joinRMA(p.Clone())
		}
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	rm, ok := r.s.rmas[id]
	if !ok {
		return nil
	}
	return r.s.joinRMA(rm.Clone())
}

// Update persiste los campos del ciclo de vida.
func (r *RMARepo) Update(_ context.Context, rm *entity.RMA) error {
	if h := r.s.Hooks.BeforeRMAUpdate; h != nil {
		if err := h(rm); err != nil {
			return err
		}
	}
	cp := rm.Clone()
	if r.pending != nil {
		r.pending[rm.ID] = cp
		return nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.rmas[rm.ID]; !ok {
		return domain.ErrRMANotFound
	}
	r.s.rmas[rm.ID] = cp
	return nil
}

// List lista RMAs según la consulta.
func (r *RMARepo) List(_ context.Context, q repository.RMAQuery) ([]*entity.RMA, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return page(r.s.matchRMAs(q), q.Limit, q.Offset), nil
}

// Count cuenta RMAs según la consulta.
func (r *RMARepo) Count(_ context.Context, q repository.RMAQuery) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return len(r.s.matchRMAs(q)), nil
}

// FindReminderCandidates RMAs que cumplen el criterio de recordatorio.
func (r *RMARepo) FindReminderCandidates(_ context.Context, c reminder.Criteria) ([]*entity.RMA, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*entity.RMA
	for _, rm := range r.s.rmas {
		if c.Matches(rm) {
			out = append(out, r.s.joinRMA(rm.Clone()))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	return out, nil
}

// LockReminderCandidate bloquea y relee el RMA dentro de la tx. Devuelve nil
// si otra tx ya tiene la fila.
func (r *RMARepo) LockReminderCandidate(ctx context.Context, id string) (*entity.RMA, error) {
	ok, err := r.lock(ctx, id, false)
	if err != nil || !ok {
		return nil, err
	}
	rm := r.get(id)
	if h := r.s.Hooks.AfterReminderLookup; h != nil {
		h(id)
	}
	return rm, nil
}

// MarkReminderSent marca el recordatorio si lastReminderSent aún vale prev.
func (r *RMARepo) MarkReminderSent(_ context.Context, id string, prev *time.Time, at time.Time) (bool, error) {
	if h := r.s.Hooks.BeforeReminderMark; h != nil {
		if err := h(id); err != nil {
			return false, err
		}
	}
	cur := r.get(id)
	if cur == nil || !sameTime(cur.LastReminderSent, prev) {
		return false, nil
	}
	stamp := at
	cur.LastReminderSent = &stamp
	if r.pending != nil {
		r.pending[id] = cur
		return true, nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.rmas[id] = cur
	return true, nil
}

func (s *Store) matchRMAs(q repository.RMAQuery) []*entity.RMA {
	if q.Filter.MatchesNothing() {
		return nil
	}
	search := strings.ToLower(q.Search)
	var out []*entity.RMA
	for _, rm := range s.rmas {
		if !q.Filter.AllowsRMA(rm) {
			continue
		}
		if q.Status != "" && rm.Status != q.Status {
			continue
		}
		if q.StartDate != nil && rm.CreatedAt.Before(*q.StartDate) {
			continue
		}
		if q.EndDate != nil && rm.CreatedAt.After(*q.EndDate) {
			continue
		}
		full := s.joinRMA(rm.Clone())
		if search != "" {
			tracking := ""
			if full.TrackingNumber != nil {
				tracking = *full.TrackingNumber
			}
			if !containsAny(search, full.CompanyName, full.Address, tracking,
				full.Owner.FirstName, full.Owner.LastName, full.Owner.Email) {
				continue
			}
		}
		out = append(out, full)
	}
	less := func(a, b *entity.RMA) bool {
		switch q.SortBy {
		case repository.RMASortUpdatedAt:
			return a.UpdatedAt.Before(b.UpdatedAt)
		case repository.RMASortStatus:
			return a.Status < b.Status
		case repository.RMASortCompany:
			return a.CompanyName < b.CompanyName
		default:
			return a.CreatedAt.Before(b.CreatedAt)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if q.SortDesc {
			return less(out[j], out[i])
		}
		return less(out[i], out[j])
	})
	return out
}

// joinRMA completa dueño, país y nombres de producto. Requiere mu tomado.
func (s *Store) joinRMA(rm *entity.RMA) *entity.RMA {
	if u, ok := s.users[rm.UserID]; ok {
		rm.Owner = entity.Recipient{FirstName: u.FirstName, LastName: u.LastName, Email: u.Email}
	}
	if c, ok := s.countries[rm.CountryID]; ok {
		rm.CountryName = c.Name
	}
	for i, line := range rm.Products {
		if p, ok := s.products[line.ProductID]; ok {
			rm.Products[i].ProductName = p.Name
			if b, ok := s.brands[p.BrandID]; ok {
				rm.Products[i].BrandName = b.Name
			}
		}
	}
	return rm
}

// ──────────────────────────────────────────────────────────────────────────────
// helpers
// ──────────────────────────────────────────────────────────────────────────────

func page[T any](all []T, limit, offset int) []T {
	if offset >= len(all) {
		return []T{}
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return all[offset:end]
}

func containsAny(needle string, fields ...string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}

func containsID(list []string, id string) bool {
	for _, v := range list {
		if v == id {
			return true
		}
	}
	return false
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func cloneUser(u *entity.User) *entity.User {
	cp := *u
	cp.Countries = append([]entity.Country(nil), u.Countries...)
	return &cp
}

func cloneBrand(b *entity.Brand) *entity.Brand {
	cp := *b
	cp.CountryIDs = append([]string(nil), b.CountryIDs...)
	return &cp
}

func cloneProduct(p *entity.Product) *entity.Product {
	cp := *p
	cp.CountryIDs = append([]string(nil), p.CountryIDs...)
	return &cp
}
