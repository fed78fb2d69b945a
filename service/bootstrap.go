// service/bootstrap.go
package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	authz_errors "github.com/dev-mohitbeniwal/echo/authz/errors"
	logger "github.com/dev-mohitbeniwal/echo/authz/logging"
	"github.com/dev-mohitbeniwal/echo/authz/model"
)

const bootstrapConcurrency = 4

type bootstrapFile struct {
	Policies []model.Policy `yaml:"policies"`
}

// LoadBootstrapPolicies reads the seed policies from a YAML file. Every
// policy must carry a fixed id so that repeated boots stay idempotent.
func LoadBootstrapPolicies(path string) ([]model.Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseBootstrapPolicies(data)
}

func parseBootstrapPolicies(data []byte) ([]model.Policy, error) {
	var file bootstrapFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %v", authz_errors.ErrInvalidBootstrapFile, err)
	}
	seen := make(map[string]struct{}, len(file.Policies))
	for i, policy := range file.Policies {
		if policy.ID == "" {
			return nil, fmt.Errorf("%w: policy #%d has no id", authz_errors.ErrInvalidBootstrapFile, i)
		}
		if _, dup := seen[policy.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate policy id %s", authz_errors.ErrInvalidBootstrapFile, policy.ID)
		}
		seen[policy.ID] = struct{}{}
	}
	return file.Policies, nil
}

// BootstrapPolicies creates the policies that do not exist yet and returns
// how many were created.
func BootstrapPolicies(ctx context.Context, svc IPolicyService, policies []model.Policy, actorURN string) (int, error) {
	var created atomic.Int32
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bootstrapConcurrency)

	for _, policy := range policies {
		policy := policy
		g.Go(func() error {
			_, err := svc.GetPolicy(ctx, policy.ID)
			if err == nil {
				logger.Debug("Bootstrap policy already present", zap.String("policyID", policy.ID))
				return nil
			}
			if !errors.Is(err, authz_errors.ErrPolicyNotFound) {
				return err
			}
			if _, err := svc.CreatePolicy(ctx, policy, actorURN); err != nil {
				if errors.Is(err, authz_errors.ErrPolicyConflict) {
					return nil
				}
				return fmt.Errorf("bootstrap policy %s: %w", policy.ID, err)
			}
			created.Add(1)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("Policy bootstrap failed", zap.Error(err))
		return int(created.Load()), err
	}
	logger.Info("Policy bootstrap completed",
		zap.Int("declared", len(policies)),
		zap.Int("created", int(created.Load())))
	return int(created.Load()), nil
}
