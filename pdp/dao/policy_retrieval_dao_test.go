package dao

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echo_neo4j "github.com/dev-mohitbeniwal/echo/authz/model/neo4j"
)

func TestBuildListUrnsQuery(t *testing.T) {
	query, params := buildListUrnsQuery(30, 30)

	assert.Contains(t, query, "MATCH (p:DataHubPolicy)")
	assert.Contains(t, query, "ORDER BY urn")
	assert.Less(t, strings.Index(query, "ORDER BY"), strings.Index(query, "SKIP $start"))
	assert.Less(t, strings.Index(query, "SKIP $start"), strings.Index(query, "LIMIT $count"))
	assert.Equal(t, map[string]interface{}{"start": int64(30), "count": int64(30)}, params)
}

func TestBuildBatchGetQuery(t *testing.T) {
	urns := []string{"urn:li:dataHubPolicy:0", "urn:li:dataHubPolicy:1"}

	query, params := buildBatchGetQuery(urns)

	assert.Contains(t, query, "WHERE p.urn IN $urns")
	assert.Contains(t, query, "OPTIONAL MATCH (p)-[:HAS_ASPECT]->(a)")
	assert.Contains(t, query, "collect(a) AS aspects")
	assert.Equal(t, urns, params["urns"])
}

func TestCountPoliciesQuery(t *testing.T) {
	assert.Equal(t, "MATCH (p:DataHubPolicy) RETURN count(p) AS total", countPoliciesQuery)
}

// The cases below return before a session is opened, so no driver is needed.

func TestListUrns_RejectsOtherEntityTypes(t *testing.T) {
	dao := NewPolicyRetrievalDAO(nil)

	_, err := dao.ListUrns(context.Background(), "corpuser", 0, 30, "urn:li:corpuser:__system")

	assert.ErrorContains(t, err, "unsupported entity type")
}

func TestListUrns_CancelledContext(t *testing.T) {
	dao := NewPolicyRetrievalDAO(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := dao.ListUrns(ctx, echo_neo4j.EntityTypePolicy, 0, 30, "urn:li:corpuser:__system")

	assert.ErrorIs(t, err, context.Canceled)
}

func TestBatchGet_EmptyInput(t *testing.T) {
	dao := NewPolicyRetrievalDAO(nil)

	entities, err := dao.BatchGet(context.Background(), nil, "urn:li:corpuser:__system")

	require.NoError(t, err)
	assert.Empty(t, entities)
}
