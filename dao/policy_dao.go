// dao/policy_dao.go
package dao

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/dev-mohitbeniwal/echo/authz/audit"
	authz_errors "github.com/dev-mohitbeniwal/echo/authz/errors"
	logger "github.com/dev-mohitbeniwal/echo/authz/logging"
	"github.com/dev-mohitbeniwal/echo/authz/model"
	echo_neo4j "github.com/dev-mohitbeniwal/echo/authz/model/neo4j"
	helper_util "github.com/dev-mohitbeniwal/echo/authz/util/helper"
)

const policyURNPrefix = "urn:li:" + echo_neo4j.EntityTypePolicy + ":"

// PolicyDAO owns writes to the policy store. Each policy is an entity node
// with one policy info aspect node attached.
type PolicyDAO struct {
	Driver       neo4j.Driver
	AuditService audit.Service
}

func NewPolicyDAO(driver neo4j.Driver, auditService audit.Service) *PolicyDAO {
	dao := &PolicyDAO{Driver: driver, AuditService: auditService}
	if err := dao.EnsureUniqueConstraint(context.Background()); err != nil {
		logger.Fatal("Failed to ensure unique constraint", zap.Error(err))
	}
	return dao
}

// NewPolicyURN returns a fresh policy URN.
func NewPolicyURN() string {
	return policyURNPrefix + uuid.NewString()
}

// EnsureUniqueConstraint ensures policy URNs are unique.
func (dao *PolicyDAO) EnsureUniqueConstraint(ctx context.Context) error {
	logger.Info("Ensuring unique constraint on policy urn")
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer func() {
		if err := session.Close(); err != nil {
			logger.Error("Failed to close Neo4j session", zap.Error(err))
		}
	}()

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        CREATE CONSTRAINT unique_policy_urn IF NOT EXISTS
        FOR (p:` + echo_neo4j.LabelPolicy + `) REQUIRE p.` + echo_neo4j.AttrURN + ` IS UNIQUE
        `
		if _, err := transaction.Run(query, nil); err != nil {
			return nil, fmt.Errorf("failed to create unique constraint: %w", err)
		}
		return nil, nil
	})
	if err != nil {
		logger.Error("Failed to ensure unique constraint on policy urn", zap.Error(err))
		return err
	}

	logger.Info("Successfully ensured unique constraint on policy urn")
	return nil
}

// CreatePolicy stores a new policy and returns its URN.
func (dao *PolicyDAO) CreatePolicy(ctx context.Context, policy model.Policy, actorURN string) (string, error) {
	start := time.Now()
	if policy.ID == "" {
		policy.ID = NewPolicyURN()
	}
	logger.Info("Creating new policy", zap.String("policyID", policy.ID), zap.String("displayName", policy.DisplayName))

	props, err := echo_neo4j.PolicyInfoProps(&policy)
	if err != nil {
		return "", fmt.Errorf("%w: %v", authz_errors.ErrInvalidPolicyData, err)
	}

	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	_, err = session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		checkResult, err := transaction.Run(
			`MATCH (p:`+echo_neo4j.LabelPolicy+` {`+echo_neo4j.AttrURN+`: $urn}) RETURN p.`+echo_neo4j.AttrURN,
			map[string]interface{}{"urn": policy.ID})
		if err != nil {
			return nil, authz_errors.ErrDatabaseOperation
		}
		if checkResult.Next() {
			return nil, authz_errors.ErrPolicyConflict
		}

		now := helper_util.FormatTime(time.Now())
		createQuery := `
        CREATE (p:` + echo_neo4j.LabelPolicy + ` {urn: $urn, createdAt: $now, updatedAt: $now})
        CREATE (p)-[:` + echo_neo4j.RelHasAspect + `]->(a:` + echo_neo4j.LabelPolicyInfo + `)
        SET a = $props
        RETURN p.urn AS urn
        `
		createResult, err := transaction.Run(createQuery, map[string]interface{}{
			"urn":   policy.ID,
			"now":   now,
			"props": props,
		})
		if err != nil {
			return nil, authz_errors.ErrDatabaseOperation
		}
		if _, err := createResult.Single(); err != nil {
			return nil, authz_errors.ErrInternalServer
		}
		return nil, nil
	})

	duration := time.Since(start)
	if err != nil {
		logger.Error("Failed to create policy",
			zap.Error(err),
			zap.String("policyID", policy.ID),
			zap.Duration("duration", duration))
		return "", err
	}

	logger.Info("Policy created successfully",
		zap.String("policyID", policy.ID),
		zap.Duration("duration", duration))

	dao.recordAudit(ctx, audit.ActionCreatePolicy, actorURN, policy.ID, createChangeDetails(nil, &policy))
	return policy.ID, nil
}

// UpdatePolicy replaces the policy info aspect of an existing policy.
func (dao *PolicyDAO) UpdatePolicy(ctx context.Context, policy model.Policy, actorURN string) (*model.Policy, error) {
	start := time.Now()
	logger.Info("Updating policy", zap.String("policyID", policy.ID))

	oldPolicy, err := dao.GetPolicy(ctx, policy.ID)
	if err != nil {
		return nil, err
	}

	props, err := echo_neo4j.PolicyInfoProps(&policy)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", authz_errors.ErrInvalidPolicyData, err)
	}

	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	_, err = session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (p:` + echo_neo4j.LabelPolicy + ` {urn: $urn})-[:` + echo_neo4j.RelHasAspect + `]->(a:` + echo_neo4j.LabelPolicyInfo + `)
        SET a = $props, p.updatedAt = $now
        RETURN p.urn
        `
		result, err := transaction.Run(query, map[string]interface{}{
			"urn":   policy.ID,
			"props": props,
			"now":   helper_util.FormatTime(time.Now()),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to execute update query: %w", err)
		}
		if !result.Next() {
			return nil, authz_errors.ErrPolicyNotFound
		}
		return nil, nil
	})

	duration := time.Since(start)
	if err != nil {
		logger.Error("Failed to update policy",
			zap.Error(err),
			zap.String("policyID", policy.ID),
			zap.Duration("duration", duration))
		return nil, fmt.Errorf("failed to update policy: %w", err)
	}

	updatedPolicy, err := dao.GetPolicy(ctx, policy.ID)
	if err != nil {
		return nil, err
	}

	logger.Info("Policy updated successfully",
		zap.String("policyID", policy.ID),
		zap.Duration("duration", duration))

	dao.recordAudit(ctx, audit.ActionUpdatePolicy, actorURN, policy.ID, createChangeDetails(oldPolicy, updatedPolicy))
	return updatedPolicy, nil
}

// DeletePolicy removes a policy and its aspects.
func (dao *PolicyDAO) DeletePolicy(ctx context.Context, policyID string, actorURN string) error {
	start := time.Now()
	logger.Info("Deleting policy", zap.String("policyID", policyID))

	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (p:` + echo_neo4j.LabelPolicy + ` {urn: $urn})
        OPTIONAL MATCH (p)-[:` + echo_neo4j.RelHasAspect + `]->(a)
        DETACH DELETE p, a
        `
		result, err := transaction.Run(query, map[string]interface{}{"urn": policyID})
		if err != nil {
			return nil, fmt.Errorf("failed to execute delete query: %w", err)
		}
		summary, err := result.Consume()
		if err != nil {
			return nil, fmt.Errorf("failed to consume delete result: %w", err)
		}
		if summary.Counters().NodesDeleted() == 0 {
			return nil, authz_errors.ErrPolicyNotFound
		}
		return nil, nil
	})

	duration := time.Since(start)
	if err != nil {
		logger.Error("Failed to delete policy",
			zap.Error(err),
			zap.String("policyID", policyID),
			zap.Duration("duration", duration))
		return fmt.Errorf("failed to delete policy: %w", err)
	}

	logger.Info("Policy deleted successfully",
		zap.String("policyID", policyID),
		zap.Duration("duration", duration))

	dao.recordAudit(ctx, audit.ActionDeletePolicy, actorURN, policyID, createChangeDetails(&model.Policy{ID: policyID}, nil))
	return nil
}

// GetPolicy retrieves a policy by URN.
func (dao *PolicyDAO) GetPolicy(ctx context.Context, policyID string) (*model.Policy, error) {
	start := time.Now()
	logger.Debug("Retrieving policy", zap.String("policyID", policyID))

	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	query := `
    MATCH (p:` + echo_neo4j.LabelPolicy + ` {urn: $urn})
    OPTIONAL MATCH (p)-[:` + echo_neo4j.RelHasAspect + `]->(a)
    RETURN p, collect(a) AS aspects
    `
	result, err := session.Run(query, map[string]interface{}{"urn": policyID})
	if err != nil {
		logger.Error("Failed to execute get policy query",
			zap.Error(err),
			zap.String("policyID", policyID),
			zap.Duration("duration", time.Since(start)))
		return nil, fmt.Errorf("failed to execute get policy query: %w", err)
	}

	if !result.Next() {
		logger.Warn("Policy not found",
			zap.String("policyID", policyID),
			zap.Duration("duration", time.Since(start)))
		return nil, authz_errors.ErrPolicyNotFound
	}

	policy, err := policyFromRecord(result.Record())
	if err != nil {
		logger.Error("Failed to map policy node to struct",
			zap.Error(err),
			zap.String("policyID", policyID),
			zap.Duration("duration", time.Since(start)))
		return nil, err
	}
	return policy, nil
}

// ListPolicies returns policies newest first.
func (dao *PolicyDAO) ListPolicies(ctx context.Context, limit int, offset int) ([]*model.Policy, error) {
	start := time.Now()
	logger.Info("Listing policies", zap.Int("limit", limit), zap.Int("offset", offset))

	query := `
    MATCH (p:` + echo_neo4j.LabelPolicy + `)
    WITH p ORDER BY p.createdAt DESC, p.urn SKIP $offset LIMIT $limit
    OPTIONAL MATCH (p)-[:` + echo_neo4j.RelHasAspect + `]->(a)
    RETURN p, collect(a) AS aspects
    ORDER BY p.createdAt DESC, p.urn
    `
	policies, err := dao.queryPolicies(query, map[string]interface{}{
		"limit":  int64(limit),
		"offset": int64(offset),
	})
	if err != nil {
		logger.Error("Failed to list policies",
			zap.Error(err),
			zap.Duration("duration", time.Since(start)))
		return nil, fmt.Errorf("failed to list policies: %w", err)
	}

	logger.Info("Policies listed successfully",
		zap.Int("count", len(policies)),
		zap.Duration("duration", time.Since(start)))
	return policies, nil
}

// SearchPolicies filters policies on their info aspect.
func (dao *PolicyDAO) SearchPolicies(ctx context.Context, criteria model.PolicySearchCriteria) ([]*model.Policy, error) {
	start := time.Now()
	logger.Info("Searching policies", zap.Any("criteria", criteria))

	query, params := buildSearchQuery(criteria)
	logger.Debug("Executing query", zap.String("query", query), zap.Any("params", params))

	policies, err := dao.queryPolicies(query, params)
	if err != nil {
		logger.Error("Failed to search policies",
			zap.Error(err),
			zap.Duration("duration", time.Since(start)))
		return nil, fmt.Errorf("failed to search policies: %w", err)
	}

	logger.Info("Policies searched successfully",
		zap.Int("count", len(policies)),
		zap.Duration("duration", time.Since(start)))
	return policies, nil
}

func buildSearchQuery(criteria model.PolicySearchCriteria) (string, map[string]interface{}) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString("MATCH (p:" + echo_neo4j.LabelPolicy + ")-[:" + echo_neo4j.RelHasAspect + "]->(info:" + echo_neo4j.LabelPolicyInfo + ") WHERE 1=1")

	params := make(map[string]interface{})

	if criteria.DisplayName != "" {
		queryBuilder.WriteString(" AND toLower(info.displayName) CONTAINS toLower($displayName)")
		params["displayName"] = criteria.DisplayName
	}

	if criteria.Type != "" {
		queryBuilder.WriteString(" AND info.type = $type")
		params["type"] = criteria.Type
	}

	if criteria.State != "" {
		queryBuilder.WriteString(" AND info.state = $state")
		params["state"] = criteria.State
	}

	if criteria.Privilege != "" {
		queryBuilder.WriteString(" AND $privilege IN info.privileges")
		params["privilege"] = criteria.Privilege
	}

	if criteria.Actor != "" {
		queryBuilder.WriteString(" AND info.actors CONTAINS $actor")
		params["actor"] = `"` + criteria.Actor + `"`
	}

	queryBuilder.WriteString(" WITH p ORDER BY p.createdAt DESC, p.urn")

	if criteria.Limit > 0 {
		queryBuilder.WriteString(" LIMIT $limit")
		params["limit"] = int64(criteria.Limit)
	}

	queryBuilder.WriteString(" OPTIONAL MATCH (p)-[:" + echo_neo4j.RelHasAspect + "]->(a) RETURN p, collect(a) AS aspects ORDER BY p.createdAt DESC, p.urn")
	return queryBuilder.String(), params
}

func (dao *PolicyDAO) queryPolicies(query string, params map[string]interface{}) ([]*model.Policy, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	result, err := session.Run(query, params)
	if err != nil {
		return nil, err
	}

	var policies []*model.Policy
	for result.Next() {
		policy, err := policyFromRecord(result.Record())
		if err != nil {
			return nil, err
		}
		policies = append(policies, policy)
	}
	return policies, result.Err()
}

func policyFromRecord(record *neo4j.Record) (*model.Policy, error) {
	node, ok := record.Values[0].(neo4j.Node)
	if !ok {
		return nil, fmt.Errorf("failed to assert type for policy node: %T", record.Values[0])
	}
	aspects, _ := record.Values[1].([]interface{})
	entity, err := echo_neo4j.EntityFromNodes(node, aspects)
	if err != nil {
		return nil, err
	}
	return model.PolicyFromEntity(entity)
}

func (dao *PolicyDAO) recordAudit(ctx context.Context, action, actorURN, policyID string, details json.RawMessage) {
	if dao.AuditService == nil {
		return
	}
	auditLog := audit.AuditLog{
		Timestamp:     time.Now().UTC(),
		ActorURN:      actorURN,
		Action:        action,
		PolicyID:      policyID,
		ChangeDetails: details,
	}
	if err := dao.AuditService.Record(ctx, auditLog); err != nil {
		logger.Error("Failed to create audit log", zap.Error(err), zap.String("action", action))
	}
}

// createChangeDetails summarizes a policy mutation for the audit log.
func createChangeDetails(oldPolicy, newPolicy *model.Policy) json.RawMessage {
	changes := make(map[string]interface{})
	switch {
	case oldPolicy == nil:
		changes["action"] = model.ChangeCreated
		changes["privileges"] = newPolicy.Privileges
	case newPolicy == nil:
		changes["action"] = model.ChangeDeleted
	default:
		changes["action"] = model.ChangeUpdated
		if oldPolicy.DisplayName != newPolicy.DisplayName {
			changes["display_name"] = map[string]string{"old": oldPolicy.DisplayName, "new": newPolicy.DisplayName}
		}
		if oldPolicy.State != newPolicy.State {
			changes["state"] = map[string]string{"old": oldPolicy.State, "new": newPolicy.State}
		}
		if strings.Join(oldPolicy.Privileges, ",") != strings.Join(newPolicy.Privileges, ",") {
			changes["privileges"] = map[string][]string{"old": oldPolicy.Privileges, "new": newPolicy.Privileges}
		}
		if oldPolicy.Condition != newPolicy.Condition {
			changes["condition"] = map[string]string{"old": oldPolicy.Condition, "new": newPolicy.Condition}
		}
	}
	changeDetails, _ := json.Marshal(changes)
	return changeDetails
}
