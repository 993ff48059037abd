package users

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/NordCoder/crewcruise/internal/domain/user"
)

var (
	ErrNotFound    = errors.New("User not found")
	ErrEmptyUpdate = errors.New("Nothing to update")
)

type Usecase struct {
	repo user.Repo
}

func New(repo user.Repo) *Usecase { return &Usecase{repo: repo} }

func (u *Usecase) Get(ctx context.Context, id int64) (*user.User, error) {
	rec, err := u.repo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	return rec, nil
}

// Find resolves ref as a numeric id first and as an email otherwise.
func (u *Usecase) Find(ctx context.Context, ref string) (*user.User, error) {
	ref = strings.TrimSpace(ref)
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		return u.Get(ctx, id)
	}
	rec, err := u.repo.GetByEmail(ctx, ref)
	if err != nil {
		return nil, notFound(err)
	}
	return rec, nil
}

func (u *Usecase) UpdateProfile(ctx context.Context, id int64, p user.Profile) (*user.User, error) {
	if p.Names == nil && p.Position == nil {
		return nil, ErrEmptyUpdate
	}
	p.Names = trimmed(p.Names)
	p.Position = trimmed(p.Position)
	rec, err := u.repo.UpdateProfile(ctx, id, p)
	if err != nil {
		return nil, notFound(err)
	}
	return rec, nil
}

// SetActivated is the administrative gate the auth core only reads.
func (u *Usecase) SetActivated(ctx context.Context, id int64, activated bool) (*user.User, error) {
	if err := u.repo.SetActivated(ctx, id, activated); err != nil {
		return nil, notFound(err)
	}
	return u.Get(ctx, id)
}

func notFound(err error) error {
	if errors.Is(err, user.ErrNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("user store: %w", err)
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
