package roles

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	log "github.com/sirupsen/logrus"

	"dms-object-service/internal/config"
	"dms-object-service/internal/core/domain"
	"dms-object-service/internal/core/ports/output"
)

var configMapGVR = schema.GroupVersionResource{
	Group:    "",
	Version:  "v1",
	Resource: "configmaps",
}

// ConfigMapResolver reads assignments from the data of one ConfigMap: each
// key is a user id, each value a comma separated assignment list. The map is
// read on every call so edits apply without a restart.
type ConfigMapResolver struct {
	client    dynamic.Interface
	namespace string
	name      string
}

var _ ports.RoleResolver = (*ConfigMapResolver)(nil)

// NewConfigMapResolver builds a dynamic client from the Kubernetes config.
func NewConfigMapResolver(cfg *config.KubernetesConfig) (*ConfigMapResolver, error) {
	if !cfg.Enabled {
		return nil, fmt.Errorf("kubernetes integration is disabled")
	}

	var restCfg *rest.Config
	var err error

	if cfg.InCluster {
		restCfg, err = rest.InClusterConfig()
	} else if cfg.KubeConfigPath != "" {
		restCfg, err = clientcmd.BuildConfigFromFlags("", cfg.KubeConfigPath)
	} else {
		home, _ := os.UserHomeDir()
		kubeconfig := filepath.Join(home, ".kube", "config")
		restCfg, err = clientcmd.BuildConfigFromFlags("", kubeconfig)
	}
	if err != nil {
		return nil, fmt.Errorf("build k8s config: %w", err)
	}

	client, err := dynamic.NewForConfig(restCfg)
	if err != nil {
		return nil, fmt.Errorf("create dynamic client: %w", err)
	}

	return NewConfigMapResolverWithClient(client, cfg.DefaultNS, cfg.RolesConfigMap), nil
}

func NewConfigMapResolverWithClient(client dynamic.Interface, namespace, name string) *ConfigMapResolver {
	if namespace == "" {
		namespace = "dms"
	}
	if name == "" {
		name = "dms-roles"
	}
	return &ConfigMapResolver{client: client, namespace: namespace, name: name}
}

func (r *ConfigMapResolver) Assignments(ctx context.Context, userID string) ([]domain.RoleAssignment, error) {
	obj, err := r.client.Resource(configMapGVR).Namespace(r.namespace).Get(ctx, r.name, metav1.GetOptions{})
	if apierrors.IsNotFound(err) {
		log.WithFields(log.Fields{
			"namespace": r.namespace,
			"configmap": r.name,
		}).Warn("Roles ConfigMap not found")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get configmap %s/%s: %w", r.namespace, r.name, err)
	}

	data, _, err := unstructured.NestedStringMap(obj.Object, "data")
	if err != nil {
		return nil, fmt.Errorf("read configmap %s/%s data: %w", r.namespace, r.name, err)
	}
	raw, ok := data[userID]
	if !ok {
		return nil, nil
	}
	assignments, err := domain.ParseRoleAssignments(raw)
	if err != nil {
		return nil, fmt.Errorf("roles of %s in configmap %s/%s: %w", userID, r.namespace, r.name, err)
	}
	return assignments, nil
}
