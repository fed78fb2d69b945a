package dao

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	logger "github.com/dev-mohitbeniwal/echo/authz/logging"
	"github.com/dev-mohitbeniwal/echo/authz/model"
	echo_neo4j "github.com/dev-mohitbeniwal/echo/authz/model/neo4j"
)

const countPoliciesQuery = `MATCH (p:` + echo_neo4j.LabelPolicy + `) RETURN count(p) AS total`

// buildListUrnsQuery pages policy URNs in URN order so that consecutive pages
// neither skip nor repeat entries while the store is unchanged.
func buildListUrnsQuery(start, count int) (string, map[string]interface{}) {
	query := `
    MATCH (p:` + echo_neo4j.LabelPolicy + `)
    RETURN p.` + echo_neo4j.AttrURN + ` AS urn
    ORDER BY urn
    SKIP $start
    LIMIT $count
    `
	return query, map[string]interface{}{
		"start": int64(start),
		"count": int64(count),
	}
}

func buildBatchGetQuery(urns []string) (string, map[string]interface{}) {
	query := `
    MATCH (p:` + echo_neo4j.LabelPolicy + `)
    WHERE p.` + echo_neo4j.AttrURN + ` IN $urns
    OPTIONAL MATCH (p)-[:` + echo_neo4j.RelHasAspect + `]->(a)
    RETURN p, collect(a) AS aspects
    `
	return query, map[string]interface{}{"urns": urns}
}

// PolicyRetrievalDAO is the read path the policy cache refresh uses. It lists
// policy URNs in a stable order and hydrates them in batches.
type PolicyRetrievalDAO struct {
	Driver neo4j.Driver
}

func NewPolicyRetrievalDAO(driver neo4j.Driver) *PolicyRetrievalDAO {
	return &PolicyRetrievalDAO{Driver: driver}
}

// ListUrns returns one page of policy URNs ordered by URN, along with the
// current total. The actor is recorded for tracing only; the system actor is
// allowed to read every policy.
func (dao *PolicyRetrievalDAO) ListUrns(ctx context.Context, entityType string, start, count int, actor string) (*model.ListUrnsResult, error) {
	if entityType != echo_neo4j.EntityTypePolicy {
		return nil, fmt.Errorf("unsupported entity type %q", entityType)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	begin := time.Now()
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	result, err := session.ReadTransaction(func(tx neo4j.Transaction) (interface{}, error) {
		countResult, err := tx.Run(countPoliciesQuery, nil)
		if err != nil {
			return nil, err
		}
		record, err := countResult.Single()
		if err != nil {
			return nil, err
		}
		total, _ := record.Get("total")

		pageResult, err := tx.Run(buildListUrnsQuery(start, count))
		if err != nil {
			return nil, err
		}

		page := &model.ListUrnsResult{Start: start}
		for pageResult.Next() {
			if urn, ok := pageResult.Record().Values[0].(string); ok {
				page.Entities = append(page.Entities, urn)
			}
		}
		if err := pageResult.Err(); err != nil {
			return nil, err
		}
		page.Count = len(page.Entities)
		if t, ok := total.(int64); ok {
			page.Total = int(t)
		}
		return page, nil
	})
	if err != nil {
		logger.Error("Failed to list policy urns",
			zap.Error(err),
			zap.Int("start", start),
			zap.Int("count", count),
			zap.String("actor", actor),
			zap.Duration("duration", time.Since(begin)))
		return nil, fmt.Errorf("failed to list policy urns: %w", err)
	}

	page := result.(*model.ListUrnsResult)
	logger.Debug("Listed policy urns",
		zap.Int("start", start),
		zap.Int("returned", page.Count),
		zap.Int("total", page.Total),
		zap.Duration("duration", time.Since(begin)))
	return page, nil
}

// BatchGet hydrates the given URNs with their aspects. URNs that no longer
// exist are absent from the returned map.
func (dao *PolicyRetrievalDAO) BatchGet(ctx context.Context, urns []string, actor string) (map[string]*model.Entity, error) {
	entities := make(map[string]*model.Entity, len(urns))
	if len(urns) == 0 {
		return entities, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	begin := time.Now()
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	_, err := session.ReadTransaction(func(tx neo4j.Transaction) (interface{}, error) {
		result, err := tx.Run(buildBatchGetQuery(urns))
		if err != nil {
			return nil, err
		}

		for result.Next() {
			record := result.Record()
			node, ok := record.Values[0].(neo4j.Node)
			if !ok {
				return nil, fmt.Errorf("failed to assert type for policy node: %T", record.Values[0])
			}
			aspects, _ := record.Values[1].([]interface{})
			entity, err := echo_neo4j.EntityFromNodes(node, aspects)
			if err != nil {
				return nil, err
			}
			entities[entity.URN] = entity
		}
		return nil, result.Err()
	})
	if err != nil {
		logger.Error("Failed to batch get policies",
			zap.Error(err),
			zap.Int("requested", len(urns)),
			zap.String("actor", actor),
			zap.Duration("duration", time.Since(begin)))
		return nil, fmt.Errorf("failed to batch get policies: %w", err)
	}

	logger.Debug("Batch fetched policies",
		zap.Int("requested", len(urns)),
		zap.Int("found", len(entities)),
		zap.Duration("duration", time.Since(begin)))
	return entities, nil
}
