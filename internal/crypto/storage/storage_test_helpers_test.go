package storage

import (
	"time"

	"github.com/allisson/hybridkem/internal/crypto/domain"
)

func sampleRotationHistory() *domain.RotationHistory {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return &domain.RotationHistory{
		TotalRotations: 1,
		CreatedAt:      now,
		LastUpdated:    now,
		Entries: []domain.RotationHistoryEntry{
			{
				Version:   1,
				CreatedAt: now,
				ExpiresAt: now.AddDate(0, 1, 0),
				Preset:    domain.PresetNormal,
				RotatedAt: now,
				Reason:    domain.ReasonInitial,
			},
		},
	}
}

func sampleKeyPair(version int) *domain.KeyPair {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return &domain.KeyPair{
		PublicKey: []byte("public-key-bytes"),
		SecretKey: []byte("secret-key-bytes"),
		Metadata: domain.Metadata{
			Preset:    domain.PresetNormal,
			Version:   version,
			CreatedAt: now,
			ExpiresAt: now.AddDate(0, 1, 0),
		},
	}
}
