package auth

import (
	"context"
	"net/mail"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/jhoicas/rma-api/internal/application/dto"
	"github.com/jhoicas/rma-api/internal/application/notification"
	"github.com/jhoicas/rma-api/internal/domain"
	"github.com/jhoicas/rma-api/internal/domain/entity"
	"github.com/jhoicas/rma-api/internal/domain/repository"
	"github.com/jhoicas/rma-api/pkg/jwt"
)

var errInvalidCredentials = domain.NewError(domain.ErrUnauthorized, "Credenciales inválidas")

// JWTConfig configuración para generación de tokens.
type JWTConfig struct {
	Secret     string
	ExpMinutes int
	Issuer     string
}

// AuthUseCase casos de uso de autenticación: registro, login y perfil.
type AuthUseCase struct {
	userRepo    repository.UserRepository
	countryRepo repository.CountryRepository
	notifier    notification.Notifier
	jwtCfg      JWTConfig
	log         zerolog.Logger
	nowFn       func() time.Time
}

// NewAuthUseCase construye el caso de uso de auth. notifier puede ser nil.
func NewAuthUseCase(userRepo repository.UserRepository, countryRepo repository.CountryRepository, notifier notification.Notifier, jwtCfg JWTConfig, log zerolog.Logger) *AuthUseCase {
	return &AuthUseCase{
		userRepo:    userRepo,
		countryRepo: countryRepo,
		notifier:    notifier,
		jwtCfg:      jwtCfg,
		log:         log.With().Str("component", "auth").Logger(),
		nowFn:       time.Now,
	}
}

// Register crea un usuario con rol USER y el país elegido, devuelve token y
// dispara el correo de bienvenida.
func (uc *AuthUseCase) Register(ctx context.Context, in dto.RegisterRequest) (*dto.AuthResponse, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validateRegister(in); err != nil {
		return nil, err
	}
	existing, err := uc.userRepo.GetByEmail(ctx, in.Email)
	if err != nil {
		return nil, domain.Wrap(domain.ErrInternal, "no se pudo verificar el email", err)
	}
	if existing != nil {
		return nil, domain.ErrEmailAlreadyExists
	}
	country, err := uc.countryRepo.GetByID(ctx, in.CountryID)
	if err != nil {
		return nil, domain.Wrap(domain.ErrInternal, "no se pudo obtener el país", err)
	}
	if country == nil {
		return nil, domain.ErrCountryNotFound
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, domain.Wrap(domain.ErrInternal, "no se pudo procesar la contraseña", err)
	}
	now := uc.nowFn()
	user := &entity.User{
		ID:           uuid.New().String(),
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Email:        in.Email,
		PasswordHash: string(hash),
		Company:      strings.TrimSpace(in.Company),
		Phone:        strings.TrimSpace(in.Phone),
		Address:      strings.TrimSpace(in.Address),
		Role:         entity.RoleUser,
		Status:       entity.UserStatusActive,
		Countries:    []entity.Country{*country},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := uc.userRepo.Create(ctx, user); err != nil {
		if domain.KindOf(err) == domain.ErrConflict {
			return nil, domain.ErrEmailAlreadyExists
		}
		return nil, domain.Wrap(domain.ErrInternal, "no se pudo crear el usuario", err)
	}
	token, err := jwt.Generate(uc.jwtCfg.Secret, user.ID, user.Email, user.Role, uc.jwtCfg.Issuer, uc.jwtCfg.ExpMinutes)
	if err != nil {
		return nil, domain.Wrap(domain.ErrInternal, "no se pudo generar el token", err)
	}
	uc.log.Info().Str("user_id", user.ID).Str("country_id", country.ID).Msg("usuario registrado")

	if uc.notifier != nil {
		uc.notifier.Notify(ctx, notification.Message{
			Kind: notification.KindWelcome,
			To: notification.Recipient{
				Name:  strings.TrimSpace(user.FirstName + " " + user.LastName),
				Email: user.Email,
			},
			Data: notification.Data{CompanyName: user.Company, CreatedAt: now},
		})
	}
	return &dto.AuthResponse{Token: token, User: *dto.ToUserResponse(user)}, nil
}

func validateRegister(in dto.RegisterRequest) error {
	switch {
	case strings.TrimSpace(in.FirstName) == "":
		return domain.NewError(domain.ErrValidation, "El nombre es requerido")
	case strings.TrimSpace(in.LastName) == "":
		return domain.NewError(domain.ErrValidation, "El apellido es requerido")
	case !validEmail(in.Email):
		return domain.NewError(domain.ErrValidation, "Debe ser un email válido")
	case len(in.Password) < 8 || len(in.Password) > 100:
		return domain.NewError(domain.ErrValidation, "La contraseña debe tener entre 8 y 100 caracteres")
	case strings.TrimSpace(in.CountryID) == "":
		return domain.NewError(domain.ErrValidation, "El país es requerido")
	}
	return nil
}

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

// Login verifica email/password, genera JWT y retorna token + usuario.
func (uc *AuthUseCase) Login(ctx context.Context, in dto.LoginRequest) (*dto.AuthResponse, error) {
	user, err := uc.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(in.Email)))
	if err != nil {
		return nil, domain.Wrap(domain.ErrInternal, "no se pudo obtener el usuario", err)
	}
	if user == nil {
		return nil, errInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return nil, errInvalidCredentials
	}
	if user.Status != entity.UserStatusActive {
		return nil, domain.NewError(domain.ErrForbidden, "Usuario inactivo")
	}
	token, err := jwt.Generate(uc.jwtCfg.Secret, user.ID, user.Email, user.Role, uc.jwtCfg.Issuer, uc.jwtCfg.ExpMinutes)
	if err != nil {
		return nil, domain.Wrap(domain.ErrInternal, "no se pudo generar el token", err)
	}
	return &dto.AuthResponse{Token: token, User: *dto.ToUserResponse(user)}, nil
}

// Profile devuelve el usuario autenticado con sus países vigentes.
func (uc *AuthUseCase) Profile(ctx context.Context, userID string) (*dto.UserResponse, error) {
	user, err := uc.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, domain.Wrap(domain.ErrInternal, "no se pudo obtener el usuario", err)
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	return dto.ToUserResponse(user), nil
}

var phonePattern = regexp.MustCompile(`^\+?[0-9\s\-()]{8,20}$`)

// UpdateProfile actualiza los datos de contacto del usuario autenticado.
// Email, rol y países no se cambian por aquí.
func (uc *AuthUseCase) UpdateProfile(ctx context.Context, userID string, in dto.UpdateProfileRequest) (*dto.UserResponse, error) {
	user, err := uc.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, domain.Wrap(domain.ErrInternal, "no se pudo obtener el usuario", err)
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	fields := []struct {
		in       *string
		out      *string
		min, max int
		msg      string
	}{
		{in.FirstName, &user.FirstName, 2, 50, "El nombre debe tener entre 2 y 50 caracteres"},
		{in.LastName, &user.LastName, 2, 50, "El apellido debe tener entre 2 y 50 caracteres"},
		{in.Address, &user.Address, 5, 200, "La dirección debe tener entre 5 y 200 caracteres"},
		{in.Company, &user.Company, 2, 100, "La empresa debe tener entre 2 y 100 caracteres"},
	}
	for _, f := range fields {
		if f.in == nil {
			continue
		}
		v := strings.TrimSpace(*f.in)
		if n := utf8.RuneCountInString(v); n < f.min || n > f.max {
			return nil, domain.NewError(domain.ErrValidation, f.msg)
		}
		*f.out = v
	}
	if in.Phone != nil {
		v := strings.TrimSpace(*in.Phone)
		if !phonePattern.MatchString(v) {
			return nil, domain.NewError(domain.ErrValidation, "Debe ser un número de teléfono válido")
		}
		user.Phone = v
	}
	user.UpdatedAt = uc.nowFn()
	if err := uc.userRepo.Update(ctx, user); err != nil {
		return nil, domain.Wrap(domain.ErrInternal, "no se pudo actualizar el perfil", err)
	}
	uc.log.Info().Str("user_id", user.ID).Msg("perfil actualizado")
	return dto.ToUserResponse(user), nil
}

// ChangePassword reemplaza la contraseña tras verificar la actual.
func (uc *AuthUseCase) ChangePassword(ctx context.Context, userID string, in dto.ChangePasswordRequest) error {
	if in.CurrentPassword == "" {
		return domain.NewError(domain.ErrValidation, "La contraseña actual es requerida")
	}
	if err := validateNewPassword(in.NewPassword); err != nil {
		return err
	}
	if in.ConfirmPassword != in.NewPassword {
		return domain.NewError(domain.ErrValidation, "Las contraseñas no coinciden")
	}
	user, err := uc.userRepo.GetByID(ctx, userID)
	if err != nil {
		return domain.Wrap(domain.ErrInternal, "no se pudo obtener el usuario", err)
	}
	if user == nil {
		return domain.ErrUserNotFound
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.CurrentPassword)); err != nil {
		return domain.NewError(domain.ErrValidation, "La contraseña actual es incorrecta")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return domain.Wrap(domain.ErrInternal, "no se pudo procesar la contraseña", err)
	}
	user.PasswordHash = string(hash)
	user.UpdatedAt = uc.nowFn()
	if err := uc.userRepo.Update(ctx, user); err != nil {
		return domain.Wrap(domain.ErrInternal, "no se pudo actualizar la contraseña", err)
	}
	uc.log.Info().Str("user_id", user.ID).Msg("contraseña actualizada")
	return nil
}

// validateNewPassword 8..100 caracteres con mayúscula, minúscula, número y uno de @$!%*?&.
func validateNewPassword(p string) error {
	if len(p) < 8 || len(p) > 100 {
		return domain.NewError(domain.ErrValidation, "La nueva contraseña debe tener entre 8 y 100 caracteres")
	}
	var lower, upper, digit, special bool
	for _, r := range p {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune("@$!%*?&", r):
			special = true
		}
	}
	if !lower || !upper || !digit || !special {
		return domain.NewError(domain.ErrValidation, "La nueva contraseña debe contener al menos: una mayúscula, una minúscula, un número y un carácter especial")
	}
	return nil
}
