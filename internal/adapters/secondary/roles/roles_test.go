package roles

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	dynamicfake "k8s.io/client-go/dynamic/fake"

	"dms-object-service/internal/config"
	"dms-object-service/internal/core/domain"
	"dms-object-service/internal/testutil"
)

func TestStatic(t *testing.T) {
	r, err := NewStatic(map[string]string{
		"alice": "INSTANCE_ADMIN",
		"bob":   "SPACE_POWER_USER:LAB, PROJECT_OBSERVER:LAB/P1",
	})
	require.NoError(t, err)

	got, err := r.Assignments(context.Background(), "bob")
	require.NoError(t, err)
	assert.Equal(t, []domain.RoleAssignment{
		{Role: domain.RolePowerUser, Level: domain.RoleLevelSpace, Scope: "LAB"},
		{Role: domain.RoleObserver, Level: domain.RoleLevelProject, Scope: "LAB/P1"},
	}, got)

	got, err = r.Assignments(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStatic_InvalidAssignment(t *testing.T) {
	_, err := NewStatic(map[string]string{"alice": "INSTANCE_WIZARD"})
	assert.Error(t, err)
}

func TestChain(t *testing.T) {
	first, err := NewStatic(map[string]string{"alice": "SPACE_OBSERVER:LAB"})
	require.NoError(t, err)
	second := &testutil.MockRoleResolver{}
	second.Grant("alice", testutil.InstanceAdmin)

	got, err := Chain{first, second}.Assignments(context.Background(), "alice")
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.True(t, domain.IsInstanceAdmin(got))
}

func rolesConfigMap(namespace, name string, data map[string]interface{}) *unstructured.Unstructured {
	return &unstructured.Unstructured{Object: map[string]interface{}{
		"apiVersion": "v1",
		"kind":       "ConfigMap",
		"metadata": map[string]interface{}{
			"namespace": namespace,
			"name":      name,
		},
		"data": data,
	}}
}

func TestConfigMapResolver(t *testing.T) {
	client := dynamicfake.NewSimpleDynamicClient(runtime.NewScheme(), rolesConfigMap("dms", "dms-roles", map[string]interface{}{
		"alice": "INSTANCE_ADMIN",
		"bob":   "SPACE_USER:LAB",
		"carol": "GALAXY_ADMIN",
	}))
	r := NewConfigMapResolverWithClient(client, "dms", "dms-roles")
	ctx := context.Background()

	got, err := r.Assignments(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, domain.IsInstanceAdmin(got))

	got, err = r.Assignments(ctx, "bob")
	require.NoError(t, err)
	assert.True(t, domain.Allows(got, domain.Scope{SpaceCode: "LAB"}, domain.CapabilityWrite))
	assert.False(t, domain.Allows(got, domain.Scope{SpaceCode: "LAB"}, domain.CapabilityDelete))

	got, err = r.Assignments(ctx, "dave")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = r.Assignments(ctx, "carol")
	assert.Error(t, err)
}

func TestConfigMapResolver_MissingConfigMap(t *testing.T) {
	client := dynamicfake.NewSimpleDynamicClient(runtime.NewScheme())
	r := NewConfigMapResolverWithClient(client, "", "")

	got, err := r.Assignments(context.Background(), "alice")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestNewConfigMapResolver_Disabled(t *testing.T) {
	_, err := NewConfigMapResolver(&config.KubernetesConfig{Enabled: false})
	assert.Error(t, err)
}
