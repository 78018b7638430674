package auth

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"skillhub/internal/skill"
	"skillhub/internal/storage"
)

var (
	// ErrInvalidCredentials is returned on bad username/password pairs.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken is returned for any token that fails validation.
	// Expired and malformed tokens are deliberately indistinguishable.
	ErrInvalidToken = errors.New("invalid or expired token")
	// ErrUserNotFound is returned when a user does not exist.
	ErrUserNotFound = errors.New("user not found")
)

// descentDepthCap bounds the hierarchical permission walk. Skills nested
// deeper than this are treated as inaccessible (policy, not an error).
const descentDepthCap = 10

// User is the public view of a user account.
type User struct {
	Username      string   `json:"username"`
	Role          string   `json:"role"`
	AllowedSkills []string `json:"allowed_skills"`
}

// TokenPayload is the decoded claim set of a bearer token.
type TokenPayload struct {
	Sub    string   `json:"sub"`
	Role   string   `json:"role"`
	Scopes []string `json:"scopes"`
}

// Service manages users, tokens and hierarchical permission checks.
type Service struct {
	users  storage.UserStore
	skills skill.Store
	secret []byte
	expiry time.Duration
}

// NewService creates an auth service over the given stores.
func NewService(users storage.UserStore, skills skill.Store, secret string, expiry time.Duration) *Service {
	return &Service{
		users:  users,
		skills: skills,
		secret: []byte(secret),
		expiry: expiry,
	}
}

// Register creates (or overwrites) a user with a bcrypt-hashed password.
func (s *Service) Register(ctx context.Context, username, password, role string, allowedSkills []string) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	if allowedSkills == nil {
		allowedSkills = []string{}
	}
	if role == "" {
		role = "viewer"
	}

	record := &storage.UserRecord{
		Username:      username,
		PasswordHash:  string(hash),
		Role:          role,
		AllowedSkills: allowedSkills,
	}
	if err := s.users.CreateUser(ctx, record); err != nil {
		return nil, err
	}
	return &User{Username: username, Role: role, AllowedSkills: allowedSkills}, nil
}

// Authenticate verifies credentials and returns a signed bearer token.
func (s *Service) Authenticate(ctx context.Context, username, password string) (string, error) {
	user, err := s.users.GetUser(ctx, username)
	if errors.Is(err, storage.ErrNotFound) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", ErrInvalidCredentials
	}

	scopes := make([]string, 0, len(user.AllowedSkills))
	for _, sid := range user.AllowedSkills {
		scopes = append(scopes, "skill:"+sid)
	}

	claims := jwt.MapClaims{
		"sub":    username,
		"role":   user.Role,
		"scopes": scopes,
		"exp":    jwt.NewNumericDate(time.Now().UTC().Add(s.expiry)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// DecodeToken validates a bearer token and returns its payload.
// All failures collapse into ErrInvalidToken so callers cannot tell an
// expired token from a forged one.
func (s *Service) DecodeToken(tokenStr string) (*TokenPayload, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	payload := &TokenPayload{Scopes: []string{}}
	if sub, ok := claims["sub"].(string); ok {
		payload.Sub = sub
	}
	if role, ok := claims["role"].(string); ok {
		payload.Role = role
	}
	if scopes, ok := claims["scopes"].([]any); ok {
		for _, sc := range scopes {
			if str, ok := sc.(string); ok {
				payload.Scopes = append(payload.Scopes, str)
			}
		}
	}
	return payload, nil
}

// IsSkillAccessible reports whether skillID falls under any allow-listed
// top-level skill. An empty allow-list means unrestricted access. The
// descent is bounded by descentDepthCap and guarded against cycles.
func (s *Service) IsSkillAccessible(ctx context.Context, skillID string, allowedSkills []string) bool {
	if len(allowedSkills) == 0 { // empty => unrestricted (admin)
		return true
	}
	for _, sid := range allowedSkills {
		if sid == skillID {
			return true
		}
	}
	for _, parent := range allowedSkills {
		if s.isDescendant(ctx, skillID, parent, 0, map[string]bool{}) {
			return true
		}
	}
	return false
}

func (s *Service) isDescendant(ctx context.Context, target, parent string, depth int, visited map[string]bool) bool {
	if depth > descentDepthCap {
		return false
	}
	if visited[parent] {
		return false
	}
	visited[parent] = true

	doc, err := s.skills.GetByID(ctx, parent, false)
	if err != nil {
		return false
	}
	for _, sub := range doc.SubSkills {
		if sub == target {
			return true
		}
	}
	for _, sub := range doc.SubSkills {
		if s.isDescendant(ctx, target, sub, depth+1, visited) {
			return true
		}
	}
	return false
}

// AllDescendants returns every skill id reachable from the given roots,
// the roots included, deduplicated and sorted.
func (s *Service) AllDescendants(ctx context.Context, skillIDs []string) []string {
	result := make(map[string]bool, len(skillIDs))
	stack := append([]string{}, skillIDs...)
	for _, sid := range skillIDs {
		result[sid] = true
	}

	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		doc, err := s.skills.GetByID(ctx, current, false)
		if err != nil {
			continue
		}
		for _, child := range doc.SubSkills {
			if !result[child] {
				result[child] = true
				stack = append(stack, child)
			}
		}
	}

	ids := make([]string, 0, len(result))
	for sid := range result {
		ids = append(ids, sid)
	}
	sort.Strings(ids)
	return ids
}

// ListUsers returns the public view of all users.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	records, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	users := make([]User, 0, len(records))
	for _, rec := range records {
		users = append(users, User{
			Username:      rec.Username,
			Role:          rec.Role,
			AllowedSkills: rec.AllowedSkills,
		})
	}
	return users, nil
}

// GetUser returns the public view of one user.
func (s *Service) GetUser(ctx context.Context, username string) (*User, error) {
	rec, err := s.users.GetUser(ctx, username)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &User{Username: rec.Username, Role: rec.Role, AllowedSkills: rec.AllowedSkills}, nil
}

// UpdatePermissions replaces a user's allow-list.
func (s *Service) UpdatePermissions(ctx context.Context, username string, allowedSkills []string) error {
	if allowedSkills == nil {
		allowedSkills = []string{}
	}
	err := s.users.UpdateAllowedSkills(ctx, username, allowedSkills)
	if errors.Is(err, storage.ErrNotFound) {
		return ErrUserNotFound
	}
	return err
}

// DeleteUser removes a user. Returns false when it did not exist.
func (s *Service) DeleteUser(ctx context.Context, username string) (bool, error) {
	return s.users.DeleteUser(ctx, username)
}

// EnsureDefaultAdmin creates the default admin user if it doesn't exist yet.
func (s *Service) EnsureDefaultAdmin(ctx context.Context, username, password string) error {
	_, err := s.users.GetUser(ctx, username)
	if err == nil {
		return nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return err
	}
	_, err = s.Register(ctx, username, password, "admin", nil)
	return err
}
