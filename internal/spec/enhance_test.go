package spec

import (
	"testing"

	"github.com/getkin/kin-openapi/openapi2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func convertedFixture(t *testing.T) *openapi2.T {
	t.Helper()
	users := userServiceSpec()
	orders := NewServiceSpec("orders", "1.0.0", "/orders", "https://orders.internal")
	orders.AddTag("orders")
	orders.AddRoute(&RouteDefinition{
		Method: GET, Path: "/orders/{id}", OperationID: "orders_Get",
		Tags: []string{"orders"},
		Parameters: []ParameterDescriptor{
			{Name: "id", In: InPath, Required: true, Type: "string"},
		},
		Responses: []ResponseDescriptor{{Status: "200", Description: "OK"}},
	})

	doc := Assemble([]*ServiceSpec{users, orders}, Info{Title: "Gateway", Version: "1.0.0"})
	v2doc, _, err := ConvertToV2(doc)
	require.NoError(t, err)
	return v2doc
}

func testBackends() []BackendRoute {
	return []BackendRoute{
		{Service: "users", Prefix: "/users", URL: "https://users.internal"},
		{Service: "orders", Prefix: "/orders", URL: "https://orders.internal"},
	}
}

func TestEnhance_BackendTargets(t *testing.T) {
	t.Parallel()
	v2doc := convertedFixture(t)

	enhanced := Enhance(v2doc, testBackends(), Platform{
		Title: "Gateway", Version: "1.0.0", Protocol: "https", RateLimit: 5000,
	})

	get := enhanced.Paths["/orders/{id}"].Get
	require.NotNil(t, get)
	target, ok := get.Extensions["x-google-backend"].(backendTarget)
	require.True(t, ok)
	assert.Equal(t, "https://orders.internal", target.Address)
	assert.Equal(t, "h2", target.Protocol)

	health := enhanced.Paths["/users/health"].Get
	require.NotNil(t, health)
	target, ok = health.Extensions["x-google-backend"].(backendTarget)
	require.True(t, ok)
	assert.Equal(t, "https://users.internal", target.Address)

	require.NotNil(t, get.Security)
	assert.Equal(t, openapi2.SecurityRequirements{{APIKeyScheme: {}}}, *get.Security)
}

func TestEnhance_HTTPProtocolToken(t *testing.T) {
	t.Parallel()
	v2doc := convertedFixture(t)
	enhanced := Enhance(v2doc, testBackends(), Platform{
		Title: "Gateway", Version: "1.0.0", Protocol: "http", RateLimit: 10,
	})
	target := enhanced.Paths["/orders/{id}"].Get.Extensions["x-google-backend"].(backendTarget)
	assert.Equal(t, "http/1.1", target.Protocol)
}

func TestEnhance_PrefixIsolation(t *testing.T) {
	t.Parallel()
	v2doc := convertedFixture(t)
	// A route outside every known prefix stays backend-less but present.
	v2doc.Paths["/status"] = &openapi2.PathItem{Get: &openapi2.Operation{
		OperationID: "gateway_Status",
		Responses:   map[string]*openapi2.Response{"200": {Description: "OK"}},
	}}

	enhanced := Enhance(v2doc, testBackends(), Platform{
		Title: "Gateway", Version: "1.0.0", Protocol: "https", RateLimit: 10,
	})

	status := enhanced.Paths["/status"].Get
	require.NotNil(t, status)
	_, hasBackend := status.Extensions["x-google-backend"]
	assert.False(t, hasBackend)
	require.NotNil(t, status.Security, "default security still applies")
}

func TestEnhance_LongestPrefixWins(t *testing.T) {
	t.Parallel()
	v2doc := convertedFixture(t)
	v2doc.Paths["/users/admin/report"] = &openapi2.PathItem{Get: &openapi2.Operation{
		OperationID: "usersAdmin_Report",
		Responses:   map[string]*openapi2.Response{"200": {Description: "OK"}},
	}}
	backends := append(testBackends(),
		BackendRoute{Service: "users-admin", Prefix: "/users/admin", URL: "https://users-admin.internal"})

	enhanced := Enhance(v2doc, backends, Platform{
		Title: "Gateway", Version: "1.0.0", Protocol: "https", RateLimit: 10,
	})
	target := enhanced.Paths["/users/admin/report"].Get.Extensions["x-google-backend"].(backendTarget)
	assert.Equal(t, "https://users-admin.internal", target.Address)
}

func TestEnhance_SecurityPruning(t *testing.T) {
	t.Parallel()
	v2doc := convertedFixture(t)
	v2doc.SecurityDefinitions = map[string]*openapi2.SecurityScheme{
		"bearer_token":  {Type: "basic"},
		"legacy_oauth":  {Type: "oauth2", Flow: "accessCode"},
		"partner_key":   {Type: "apiKey", In: "query", Name: "key"},
		"partner_oauth": {Type: "oauth2", Flow: "implicit", AuthorizationURL: "https://auth.internal"},
	}
	v2doc.Security = openapi2.SecurityRequirements{{"bearer_token": {}}, {"partner_key": {}}}

	enhanced := Enhance(v2doc, testBackends(), Platform{
		Title: "Gateway", Version: "1.0.0", Protocol: "https", RateLimit: 10,
	})

	defs := enhanced.SecurityDefinitions
	assert.NotContains(t, defs, "bearer_token")
	assert.NotContains(t, defs, "legacy_oauth")
	assert.Contains(t, defs, "partner_key")
	assert.Contains(t, defs, "partner_oauth")

	// The canonical scheme is always present.
	require.Contains(t, defs, APIKeyScheme)
	assert.Equal(t, "apiKey", defs[APIKeyScheme].Type)
	assert.Equal(t, "header", defs[APIKeyScheme].In)
	assert.Equal(t, "x-api-key", defs[APIKeyScheme].Name)

	// Requirements referring to pruned schemes are dropped.
	assert.Equal(t, openapi2.SecurityRequirements{{"partner_key": {}}}, enhanced.Security)
}

func TestEnhance_ManagementBlock(t *testing.T) {
	t.Parallel()
	v2doc := convertedFixture(t)
	enhanced := Enhance(v2doc, testBackends(), Platform{
		Title: "My Gateway", Version: "2.0.0", Protocol: "https", RateLimit: 750,
	})

	assert.Equal(t, "My Gateway", enhanced.Info.Title)
	assert.Equal(t, "2.0.0", enhanced.Info.Version)

	m, ok := enhanced.Extensions["x-google-management"].(management)
	require.True(t, ok)
	require.Len(t, m.Metrics, 2)
	require.Len(t, m.Quota.Limits, 1)
	assert.Equal(t, 750, m.Quota.Limits[0].Values["STANDARD"])
	assert.Equal(t, "request-count", m.Quota.Limits[0].Metric)
}
