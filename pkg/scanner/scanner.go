// Package scanner enumerates workloads and reads their current container
// resource specs from the cluster.
package scanner

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/util/homedir"

	"github.com/kubewise/k8s-resource-recommender/pkg/models"
	"github.com/kubewise/k8s-resource-recommender/pkg/retry"
)

// Scanner reads workload definitions through the Kubernetes API.
type Scanner struct {
	clientset kubernetes.Interface
	retry     retry.Policy
	log       *logrus.Entry
}

func New(clientset kubernetes.Interface, policy retry.Policy) *Scanner {
	return &Scanner{
		clientset: clientset,
		retry:     policy,
		log:       logrus.WithField("source", "cluster"),
	}
}

// RestConfig builds client configuration either from the in-cluster service
// account or from the kubeconfig at the default location.
func RestConfig(inCluster bool) (*rest.Config, error) {
	if inCluster {
		cfg, err := rest.InClusterConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to load in-cluster config: %w", err)
		}
		return cfg, nil
	}

	var kubeconfig string
	if home := homedir.HomeDir(); home != "" {
		kubeconfig = filepath.Join(home, ".kube", "config")
	}
	cfg, err := clientcmd.BuildConfigFromFlags("", kubeconfig)
	if err != nil {
		return nil, fmt.Errorf("failed to load kubeconfig: %w", err)
	}
	return cfg, nil
}

// ListContainerSpecs returns one entry per (workload, container) across the
// selected namespaces, covering Deployments, StatefulSets and DaemonSets.
// Target namespaces win over exclusions; with no targets, all namespaces
// except the excluded ones are scanned.
func (s *Scanner) ListContainerSpecs(ctx context.Context, targets, excluded []string) ([]models.ContainerSpec, error) {
	namespaces, err := s.selectNamespaces(ctx, targets, excluded)
	if err != nil {
		return nil, err
	}

	var specs []models.ContainerSpec
	for _, ns := range namespaces {
		nsSpecs, err := s.scanNamespace(ctx, ns)
		if err != nil {
			return nil, err
		}
		specs = append(specs, nsSpecs...)
	}

	s.log.WithField("containers", len(specs)).Info("scanned workload containers")
	return specs, nil
}

func (s *Scanner) selectNamespaces(ctx context.Context, targets, excluded []string) ([]string, error) {
	excludedSet := make(map[string]bool, len(excluded))
	for _, ns := range excluded {
		excludedSet[ns] = true
	}

	if len(targets) > 0 {
		var out []string
		for _, ns := range targets {
			if excludedSet[ns] {
				s.log.WithField("namespace", ns).Warn("target namespace is also excluded, skipping")
				continue
			}
			out = append(out, ns)
		}
		return out, nil
	}

	var nsList *corev1.NamespaceList
	err := s.retry.Do(ctx, "list namespaces", func(ctx context.Context) error {
		var err error
		nsList, err = s.clientset.CoreV1().Namespaces().List(ctx, metav1.ListOptions{})
		return err
	})
	if err != nil {
		return nil, &models.SourceUnavailableError{Source: "cluster", Err: err}
	}

	var out []string
	for _, ns := range nsList.Items {
		if !excludedSet[ns.Name] {
			out = append(out, ns.Name)
		}
	}
	return out, nil
}

func (s *Scanner) scanNamespace(ctx context.Context, namespace string) ([]models.ContainerSpec, error) {
	var specs []models.ContainerSpec

	err := s.retry.Do(ctx, "list workloads", func(ctx context.Context) error {
		specs = specs[:0]

		deployments, err := s.clientset.AppsV1().Deployments(namespace).List(ctx, metav1.ListOptions{})
		if err != nil {
			return fmt.Errorf("failed to list deployments in %s: %w", namespace, err)
		}
		for _, d := range deployments.Items {
			specs = append(specs, containerSpecs(namespace, d.Name, "Deployment", d.Spec.Template.Spec.Containers)...)
		}

		statefulSets, err := s.clientset.AppsV1().StatefulSets(namespace).List(ctx, metav1.ListOptions{})
		if err != nil {
			return fmt.Errorf("failed to list statefulsets in %s: %w", namespace, err)
		}
		for _, sts := range statefulSets.Items {
			specs = append(specs, containerSpecs(namespace, sts.Name, "StatefulSet", sts.Spec.Template.Spec.Containers)...)
		}

		daemonSets, err := s.clientset.AppsV1().DaemonSets(namespace).List(ctx, metav1.ListOptions{})
		if err != nil {
			return fmt.Errorf("failed to list daemonsets in %s: %w", namespace, err)
		}
		for _, ds := range daemonSets.Items {
			specs = append(specs, containerSpecs(namespace, ds.Name, "DaemonSet", ds.Spec.Template.Spec.Containers)...)
		}

		return nil
	})
	if err != nil {
		return nil, &models.SourceUnavailableError{Source: "cluster", Err: err}
	}

	return specs, nil
}

func containerSpecs(namespace, workload, kind string, containers []corev1.Container) []models.ContainerSpec {
	specs := make([]models.ContainerSpec, 0, len(containers))
	for _, c := range containers {
		specs = append(specs, models.ContainerSpec{
			Namespace:    namespace,
			Workload:     workload,
			WorkloadKind: kind,
			Container:    c.Name,
			CPU: models.CurrentSpec{
				Request: quantityFrom(c.Resources.Requests, corev1.ResourceCPU),
				Limit:   quantityFrom(c.Resources.Limits, corev1.ResourceCPU),
			},
			Memory: models.CurrentSpec{
				Request: quantityFrom(c.Resources.Requests, corev1.ResourceMemory),
				Limit:   quantityFrom(c.Resources.Limits, corev1.ResourceMemory),
			},
		})
	}
	return specs
}

// quantityFrom copies the quantity out of a resource list, or nil when the
// field is not set. Absence is an explicit state, never zero.
func quantityFrom(list corev1.ResourceList, name corev1.ResourceName) *resource.Quantity {
	q, ok := list[name]
	if !ok {
		return nil
	}
	return &q
}
