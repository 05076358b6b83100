package marketplace

import (
	"context"
	"fmt"

	"github.com/kilianp07/freightmarket/core/apperr"
	"github.com/kilianp07/freightmarket/core/audit"
	"github.com/kilianp07/freightmarket/core/model"
)

// MaxLogEntries bounds the audit listing of the admin console.
const MaxLogEntries = 200

// Verification decisions.
const (
	DecisionApprove = "approve"
	DecisionReject  = "reject"
)

// VerifyResult is the outcome of a KYB decision.
type VerifyResult struct {
	UserID   string `json:"userId"`
	Verified bool   `json:"verified"`
}

// BanResult is the outcome of a ban toggle.
type BanResult struct {
	UserID string `json:"userId"`
	Banned bool   `json:"banned"`
}

// HideResult is the outcome of a moderation toggle.
type HideResult struct {
	ShipmentID string `json:"shipmentId"`
	Hidden     bool   `json:"hidden"`
}

// Counts summarises the store.
func (s *Service) Counts(ctx context.Context) (model.Counts, error) {
	c, err := s.repo.Counts(ctx)
	if err != nil {
		return model.Counts{}, storeErr("counts", err)
	}
	return c, nil
}

// Users lists every user.
func (s *Service) Users(ctx context.Context) ([]model.UserView, error) {
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, storeErr("list users", err)
	}
	out := make([]model.UserView, 0, len(users))
	for _, u := range users {
		out = append(out, model.NewUserView(u))
	}
	return out, nil
}

// User returns one user.
func (s *Service) User(ctx context.Context, id string) (model.User, error) {
	u, err := s.repo.User(ctx, id)
	if err != nil {
		return model.User{}, lookup(err, "user not found")
	}
	return u, nil
}

// PendingVerifications lists transporters awaiting a KYB decision.
func (s *Service) PendingVerifications(ctx context.Context) ([]model.PendingVerification, error) {
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, storeErr("list users", err)
	}
	out := make([]model.PendingVerification, 0)
	for _, u := range users {
		if u.PendingKYB() {
			out = append(out, model.NewPendingVerification(u))
		}
	}
	return out, nil
}

// Verify records a KYB decision on a transporter.
func (s *Service) Verify(ctx context.Context, actor model.Actor, userID, decision string) (VerifyResult, error) {
	u, err := s.repo.User(ctx, userID)
	if err != nil || u.Role != model.RoleTransporter {
		if err != nil && !isNotFound(err) {
			return VerifyResult{}, storeErr("load user", err)
		}
		return VerifyResult{}, apperr.NotFound("transporter not found")
	}
	switch decision {
	case DecisionApprove:
		u.Verified = true
	case DecisionReject:
		u.Verified = false
	default:
		return VerifyResult{}, apperr.Validation("decision must be approve|reject")
	}
	if err := s.repo.UpdateUser(ctx, u); err != nil {
		return VerifyResult{}, storeErr("update user", err)
	}
	s.audit.Record(ctx, actor.Label(string(model.RoleAdmin)), audit.TypeVerify, u.ID, "Decision: "+decision)
	return VerifyResult{UserID: u.ID, Verified: u.Verified}, nil
}

// SetBanned bans or reinstates a user.
func (s *Service) SetBanned(ctx context.Context, actor model.Actor, userID string, ban bool) (BanResult, error) {
	u, err := s.repo.User(ctx, userID)
	if err != nil {
		return BanResult{}, lookup(err, "user not found")
	}
	u.Banned = ban
	if err := s.repo.UpdateUser(ctx, u); err != nil {
		return BanResult{}, storeErr("update user", err)
	}
	s.audit.Record(ctx, actor.Label(string(model.RoleAdmin)), audit.TypeBan, u.ID, fmt.Sprintf("ban=%t", ban))
	return BanResult{UserID: u.ID, Banned: u.Banned}, nil
}

// Transporters lists verified transporters.
func (s *Service) Transporters(ctx context.Context) ([]model.TransporterView, error) {
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, storeErr("list users", err)
	}
	out := make([]model.TransporterView, 0)
	for _, u := range users {
		if u.Role == model.RoleTransporter && u.Verified {
			out = append(out, model.NewTransporterView(u))
		}
	}
	return out, nil
}

// Flagged lists moderation flags with their shipment route.
func (s *Service) Flagged(ctx context.Context) ([]model.FlagView, error) {
	flags, err := s.repo.ListFlags(ctx)
	if err != nil {
		return nil, storeErr("list flags", err)
	}
	out := make([]model.FlagView, 0, len(flags))
	for _, f := range flags {
		if sh, err := s.repo.Shipment(ctx, f.ShipmentID); err == nil {
			out = append(out, model.NewFlagView(f, &sh))
			continue
		}
		out = append(out, model.NewFlagView(f, nil))
	}
	return out, nil
}

// SetHidden hides or restores a shipment and its flag.
func (s *Service) SetHidden(ctx context.Context, actor model.Actor, shipmentID string, hide bool) (HideResult, error) {
	unlock := s.locks.Lock(shipmentID)
	defer unlock()
	sh, err := s.repo.Shipment(ctx, shipmentID)
	if err != nil {
		return HideResult{}, lookup(err, "shipment not found")
	}
	sh.Hidden = hide
	if err := s.repo.UpdateShipment(ctx, sh); err != nil {
		return HideResult{}, storeErr("update shipment", err)
	}
	if f, err := s.repo.FlagByShipment(ctx, shipmentID); err == nil {
		f.Hidden = hide
		if err := s.repo.UpdateFlag(ctx, f); err != nil {
			return HideResult{}, storeErr("update flag", err)
		}
	}
	s.audit.Record(ctx, actor.Label(string(model.RoleAdmin)), audit.TypeHide, shipmentID, fmt.Sprintf("hidden=%t", hide))
	return HideResult{ShipmentID: shipmentID, Hidden: hide}, nil
}

// Logs returns the newest audit entries. Limit defaults to and is capped at
// MaxLogEntries.
func (s *Service) Logs(limit int) []audit.Entry {
	if limit <= 0 || limit > MaxLogEntries {
		limit = MaxLogEntries
	}
	return s.audit.Recent(limit)
}

// Wipe removes every record and restarts id allocation.
func (s *Service) Wipe(ctx context.Context, actor model.Actor) error {
	if err := s.reset(ctx); err != nil {
		return err
	}
	s.audit.Record(ctx, actor.Label(string(model.RoleAdmin)), audit.TypeWipe, "-", "All demo data wiped")
	return nil
}

func (s *Service) reset(ctx context.Context) error {
	if err := s.repo.Wipe(ctx); err != nil {
		return storeErr("wipe", err)
	}
	s.ids.Reset()
	s.audit.Clear()
	return nil
}

// ResolveLoginUser picks the account of a demo login. An explicit userID must
// exist, hold role and not be banned. Without one the first active user with
// role is used.
func (s *Service) ResolveLoginUser(ctx context.Context, role model.Role, userID string) (model.User, error) {
	if userID != "" {
		u, err := s.User(ctx, userID)
		if err != nil {
			return model.User{}, err
		}
		if u.Role != role {
			return model.User{}, apperr.Validation("user %s is not a %s", u.ID, role)
		}
		if u.Banned {
			return model.User{}, apperr.Forbidden("user is banned")
		}
		return u, nil
	}
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return model.User{}, storeErr("list users", err)
	}
	for _, u := range users {
		if u.Role == role && !u.Banned {
			return u, nil
		}
	}
	return model.User{}, apperr.NotFound("no %s account available", role)
}
