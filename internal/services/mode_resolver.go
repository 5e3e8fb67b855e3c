package services

import (
	"context"
	"fmt"

	"github.com/SAP-F-2025/attempt-engine/internal/models"
	"github.com/SAP-F-2025/attempt-engine/internal/repositories"
)

// ModeResolver decides whether a session runs online or offline.
type ModeResolver struct {
	store   repositories.OfflineStore
	network NetworkStatus
}

func NewModeResolver(store repositories.OfflineStore, network NetworkStatus) *ModeResolver {
	if network == nil {
		network = AlwaysOnline{}
	}
	return &ModeResolver{store: store, network: network}
}

// Resolve reports true for offline mode. Local offline data forces offline
// mode; otherwise only offline-capable activities go offline, either because
// the device has no network or because the last unfinished attempt was
// played offline.
func (r *ModeResolver) Resolve(ctx context.Context, cfg *models.ActivityConfig) (bool, error) {
	hasData, err := r.store.HasOfflineData(ctx, cfg.ID)
	if err != nil {
		return false, fmt.Errorf("failed to check offline data: %w", err)
	}
	if hasData {
		return true, nil
	}
	if !cfg.OfflineCapable {
		return false, nil
	}
	if !r.network.IsOnline() {
		return true, nil
	}

	unfinished, err := r.store.LastAttemptOfflineUnfinished(ctx, cfg.ID)
	if err != nil {
		return false, fmt.Errorf("failed to check offline attempts: %w", err)
	}
	return unfinished, nil
}
