package graphstore

import (
	"context"
	"time"

	"github.com/obsidian-cms/obsidian/internal/domain"
	"github.com/obsidian-cms/obsidian/internal/graph"
)

// User nodes are written by this repository only; the generic entity store
// refuses the User label outright.
type UserRepo struct {
	driver graph.Driver
}

func NewUserRepo(driver graph.Driver) *UserRepo {
	return &UserRepo{driver: driver}
}

func (r *UserRepo) Create(ctx context.Context, user *domain.User) error {
	props := map[string]any{
		domain.PropUUID:  user.UUID,
		"ScreenName":     user.ScreenName,
		"Email":          user.Email,
		"FirstName":      user.FirstName,
		"MiddleName":     user.MiddleName,
		"LastName":       user.LastName,
		"Phone":          user.Phone,
		"Disabled":       user.Disabled,
		"Banned":         user.Banned,
		"Admin":          user.Admin,
		"LastSeen":       user.LastSeen.UTC().Format(time.RFC3339),
		"Joined":         user.Joined.UTC().Format(time.RFC3339),
		"Salt":           user.Credential.Salt,
		"SaltPos":        user.Credential.SaltPos,
		"HashedPassword": user.Credential.HashedPassword,
	}

	session := r.driver.Session(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx graph.Tx) (any, error) {
		return tx.Run(ctx, "CREATE (u:User $props) RETURN u", map[string]any{"props": props})
	})
	if err != nil {
		return wrapStorage(err)
	}
	return nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, "Email", email)
}

func (r *UserRepo) GetByUUID(ctx context.Context, uuid string) (*domain.User, error) {
	return r.findOne(ctx, domain.PropUUID, uuid)
}

func (r *UserRepo) findOne(ctx context.Context, property string, value any) (*domain.User, error) {
	session := r.driver.Session(ctx)
	defer session.Close(ctx)

	records, err := session.Run(ctx,
		"MATCH (u:User) WHERE u[$property] = $value RETURN u LIMIT 1",
		map[string]any{"property": property, "value": value})
	if err != nil {
		return nil, wrapStorage(err)
	}
	if len(records) == 0 {
		return nil, domain.ErrNotFound
	}

	raw, ok := records[0]["u"].(graph.Node)
	if !ok {
		return nil, domain.ErrNotFound
	}
	return userFromProps(raw.Props), nil
}

func (r *UserRepo) UpdateLastSeen(ctx context.Context, uuid string, when time.Time) error {
	session := r.driver.Session(ctx)
	defer session.Close(ctx)

	records, err := session.Run(ctx,
		"MATCH (u:User {UUID: $uuid}) SET u.LastSeen = $when RETURN u.UUID AS uuid",
		map[string]any{"uuid": uuid, "when": when.UTC().Format(time.RFC3339)})
	if err != nil {
		return wrapStorage(err)
	}
	if len(records) == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func userFromProps(props map[string]any) *domain.User {
	return &domain.User{
		UUID:       stringProp(props, domain.PropUUID),
		ScreenName: stringProp(props, "ScreenName"),
		Email:      stringProp(props, "Email"),
		FirstName:  stringProp(props, "FirstName"),
		MiddleName: stringProp(props, "MiddleName"),
		LastName:   stringProp(props, "LastName"),
		Phone:      stringProp(props, "Phone"),
		Disabled:   boolProp(props, "Disabled"),
		Banned:     boolProp(props, "Banned"),
		Admin:      boolProp(props, "Admin"),
		LastSeen:   timeProp(props, "LastSeen"),
		Joined:     timeProp(props, "Joined"),
		Credential: domain.Credential{
			Salt:           stringProp(props, "Salt"),
			SaltPos:        intProp(props, "SaltPos"),
			HashedPassword: stringProp(props, "HashedPassword"),
		},
	}
}

func stringProp(props map[string]any, key string) string {
	s, _ := props[key].(string)
	return s
}

func boolProp(props map[string]any, key string) bool {
	b, _ := props[key].(bool)
	return b
}

// intProp tolerates the integer widths different drivers hand back.
func intProp(props map[string]any, key string) int {
	switch v := props[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

func timeProp(props map[string]any, key string) time.Time {
	s, ok := props[key].(string)
	if !ok {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
