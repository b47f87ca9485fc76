package service

import (
	"context"
	"encoding/json"
	"learning_platform_backend/internal/model"
	"learning_platform_backend/internal/repository"
	"learning_platform_backend/pkg/logger"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	dashboardKey = "admin:dashboard"
	dashboardTTL = 2 * time.Minute
)

type DashboardService struct {
	repo     *repository.DashboardRepository
	payments *repository.PaymentRepository
	wallet   *WalletService
	rdb      redis.Cmdable
}

func NewDashboardService(repo *repository.DashboardRepository, payments *repository.PaymentRepository, wallet *WalletService, rdb redis.Cmdable) *DashboardService {
	return &DashboardService{repo: repo, payments: payments, wallet: wallet, rdb: rdb}
}

type Dashboard struct {
	Counts         *repository.CatalogCounts    `json:"counts"`
	Payments       *repository.PaymentStats     `json:"payments"`
	RecentPayments []model.Payment              `json:"recentPayments"`
	Wallets        *WalletDashboard             `json:"wallets"`
	TopTopics      []repository.TopicCompletion `json:"topTopics"`
	GeneratedAt    time.Time                    `json:"generatedAt"`
}

// GetDashboard serves the admin totals, from Redis when a fresh copy exists.
func (s *DashboardService) GetDashboard(ctx context.Context) (*Dashboard, error) {
	if s.rdb != nil {
		if raw, err := s.rdb.Get(ctx, dashboardKey).Bytes(); err == nil {
			var cached Dashboard
			if json.Unmarshal(raw, &cached) == nil {
				return &cached, nil
			}
		}
	}

	counts, err := s.repo.Counts()
	if err != nil {
		return nil, err
	}
	stats, err := s.payments.Stats()
	if err != nil {
		return nil, err
	}
	recent, err := s.payments.Recent(5)
	if err != nil {
		return nil, err
	}
	wallets, err := s.wallet.Dashboard(ctx)
	if err != nil {
		return nil, err
	}
	top, err := s.repo.TopCompletedTopics(5)
	if err != nil {
		return nil, err
	}

	dash := &Dashboard{
		Counts:         counts,
		Payments:       stats,
		RecentPayments: recent,
		Wallets:        wallets,
		TopTopics:      top,
		GeneratedAt:    time.Now(),
	}
	if s.rdb != nil {
		if raw, err := json.Marshal(dash); err == nil {
			if err := s.rdb.Set(ctx, dashboardKey, raw, dashboardTTL).Err(); err != nil {
				logger.Log.Warn("failed to cache dashboard", zap.Error(err))
			}
		}
	}
	return dash, nil
}

// Invalidate drops the cached copy so the next read recomputes it.
func (s *DashboardService) Invalidate(ctx context.Context) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Del(ctx, dashboardKey).Err(); err != nil {
		logger.Log.Warn("failed to invalidate dashboard cache", zap.Error(err))
	}
}
