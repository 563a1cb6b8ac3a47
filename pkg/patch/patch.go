// Package patch renders recommendations as strategic-merge patch fragments
// that set container resources on a workload's pod template. The fragments
// are review artifacts: nothing here talks to a cluster.
package patch

import (
	"bytes"
	"fmt"
	"sort"

	corev1 "k8s.io/api/core/v1"
	"sigs.k8s.io/yaml"

	"github.com/kubewise/k8s-resource-recommender/pkg/models"
)

// ContainerResources is one container entry in a patch fragment. Using the
// core/v1 resource types keeps quantity formatting canonical, so a patch
// built from a spec that already matches is structurally a no-op when
// applied.
type ContainerResources struct {
	Name      string                      `json:"name"`
	Resources corev1.ResourceRequirements `json:"resources"`
}

type podSpecPatch struct {
	Containers []ContainerResources `json:"containers"`
}

type templatePatch struct {
	Spec podSpecPatch `json:"spec"`
}

type specPatch struct {
	Template templatePatch `json:"template"`
}

// WorkloadPatch is the strategic-merge fragment for one workload, covering
// all of its containers.
type WorkloadPatch struct {
	Namespace string
	Workload  string

	Spec specPatch `json:"spec"`
}

// Generate groups recommendations per (namespace, workload) and merges the
// cpu and memory request/limit of each container into a single resources
// block. Input recommendations are assumed well-formed; validation is the
// policy's job upstream.
func Generate(recs []models.Recommendation) []WorkloadPatch {
	type workloadKey struct {
		namespace string
		workload  string
	}

	grouped := make(map[workloadKey]map[string]*ContainerResources)
	for _, rec := range recs {
		wk := workloadKey{namespace: rec.Namespace, workload: rec.Workload}
		containers, ok := grouped[wk]
		if !ok {
			containers = make(map[string]*ContainerResources)
			grouped[wk] = containers
		}

		entry, ok := containers[rec.Container]
		if !ok {
			entry = &ContainerResources{
				Name: rec.Container,
				Resources: corev1.ResourceRequirements{
					Requests: corev1.ResourceList{},
					Limits:   corev1.ResourceList{},
				},
			}
			containers[rec.Container] = entry
		}

		name := corev1.ResourceName(rec.Kind)
		entry.Resources.Requests[name] = rec.Request
		entry.Resources.Limits[name] = rec.Limit
	}

	patches := make([]WorkloadPatch, 0, len(grouped))
	for wk, containers := range grouped {
		names := make([]string, 0, len(containers))
		for name := range containers {
			names = append(names, name)
		}
		sort.Strings(names)

		ordered := make([]ContainerResources, 0, len(names))
		for _, name := range names {
			ordered = append(ordered, *containers[name])
		}

		patches = append(patches, WorkloadPatch{
			Namespace: wk.namespace,
			Workload:  wk.workload,
			Spec: specPatch{
				Template: templatePatch{
					Spec: podSpecPatch{Containers: ordered},
				},
			},
		})
	}

	// Bundle per namespace, then workload, for deterministic delivery.
	sort.Slice(patches, func(i, j int) bool {
		if patches[i].Namespace != patches[j].Namespace {
			return patches[i].Namespace < patches[j].Namespace
		}
		return patches[i].Workload < patches[j].Workload
	})

	return patches
}

// RenderYAML serializes patches as a commented YAML stream, one document
// per workload. Identical input always renders identical bytes.
func RenderYAML(patches []WorkloadPatch) ([]byte, error) {
	if len(patches) == 0 {
		return []byte("# No recommendations - all resources are already optimized.\n"), nil
	}

	var buf bytes.Buffer
	buf.WriteString("# Container resource patches, one document per workload.\n")
	buf.WriteString("# Apply with: kubectl patch <kind> <workload> -n <namespace> --patch-file <file>\n")

	for _, p := range patches {
		fmt.Fprintf(&buf, "---\n# %s/%s\n", p.Namespace, p.Workload)
		body, err := yaml.Marshal(struct {
			Spec specPatch `json:"spec"`
		}{Spec: p.Spec})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal patch for %s/%s: %w", p.Namespace, p.Workload, err)
		}
		buf.Write(body)
	}

	return buf.Bytes(), nil
}
