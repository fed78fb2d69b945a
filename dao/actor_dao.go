package dao

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	authz_errors "github.com/dev-mohitbeniwal/echo/authz/errors"
	logger "github.com/dev-mohitbeniwal/echo/authz/logging"
	echo_neo4j "github.com/dev-mohitbeniwal/echo/authz/model/neo4j"
)

// ActorDAO resolves group membership and resource ownership from the graph so
// that authorization requests reach the evaluator fully populated.
type ActorDAO struct {
	Driver neo4j.Driver
}

func NewActorDAO(driver neo4j.Driver) *ActorDAO {
	return &ActorDAO{Driver: driver}
}

// ResolveGroups returns the URNs of the groups actorURN belongs to, sorted.
func (dao *ActorDAO) ResolveGroups(ctx context.Context, actorURN string) ([]string, error) {
	query := `
    MATCH (u:` + echo_neo4j.LabelCorpUser + ` {` + echo_neo4j.AttrURN + `: $urn})-[:` + echo_neo4j.RelBelongsToGroup + `]->(g:` + echo_neo4j.LabelCorpGroup + `)
    RETURN g.` + echo_neo4j.AttrURN + ` AS urn
    ORDER BY urn
    `
	return dao.collectURNs(ctx, "groups", query, actorURN)
}

// ResolveOwners returns the URNs of the users and groups owning resourceURN.
func (dao *ActorDAO) ResolveOwners(ctx context.Context, resourceURN string) ([]string, error) {
	query := `
    MATCH (r {` + echo_neo4j.AttrURN + `: $urn})-[:` + echo_neo4j.RelOwnedBy + `]->(o)
    RETURN o.` + echo_neo4j.AttrURN + ` AS urn
    ORDER BY urn
    `
	return dao.collectURNs(ctx, "owners", query, resourceURN)
}

func (dao *ActorDAO) collectURNs(ctx context.Context, what, query, urn string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	result, err := session.ReadTransaction(func(tx neo4j.Transaction) (interface{}, error) {
		records, err := tx.Run(query, map[string]interface{}{"urn": urn})
		if err != nil {
			return nil, err
		}
		urns := []string{}
		for records.Next() {
			value, ok := records.Record().Get("urn")
			if !ok {
				continue
			}
			if s, ok := value.(string); ok && s != "" {
				urns = append(urns, s)
			}
		}
		return urns, records.Err()
	})
	if err != nil {
		logger.Error("Failed to resolve "+what,
			zap.Error(err),
			zap.String("urn", urn),
			zap.Duration("duration", time.Since(start)))
		return nil, fmt.Errorf("%w: resolve %s: %v", authz_errors.ErrDatabaseOperation, what, err)
	}

	urns := result.([]string)
	logger.Debug("Resolved "+what,
		zap.String("urn", urn),
		zap.Int("count", len(urns)),
		zap.Duration("duration", time.Since(start)))
	return urns, nil
}
