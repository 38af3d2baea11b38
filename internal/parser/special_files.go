package parser

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/kdevlin/semindex/internal/entity"
	"gopkg.in/yaml.v3"
)

// ExtractSpecialFile recognizes a handful of path/name-sniffed config
// formats (package.json, tsconfig.json, Docker Compose, Kubernetes
// manifests, GitHub workflow files) and yields richer, domain-specific
// entities and relations beyond what the generic JSON/YAML parsers produce
// (spec §4.2). Returns ok=false when path doesn't match any special shape.
func ExtractSpecialFile(path string, source []byte) (ParseOutput, bool) {
	base := filepath.Base(path)

	switch {
	case base == "package.json":
		return extractPackageJSON(path, source), true
	case base == "tsconfig.json":
		return extractTSConfig(path, source), true
	case strings.HasPrefix(base, "docker-compose") && (strings.HasSuffix(base, ".yml") || strings.HasSuffix(base, ".yaml")):
		return extractDockerCompose(path, source), true
	case strings.Contains(filepath.ToSlash(path), ".github/workflows/"):
		return extractGithubWorkflow(path, source), true
	case looksLikeKubernetesManifest(source):
		return extractKubernetesManifest(path, source), true
	}

	return ParseOutput{}, false
}

func extractPackageJSON(path string, source []byte) ParseOutput {
	var out ParseOutput
	var doc struct {
		Name            string            `json:"name"`
		Version         string            `json:"version"`
		Dependencies    map[string]string `json:"dependencies"`
		DevDependencies map[string]string `json:"devDependencies"`
		Scripts         map[string]string `json:"scripts"`
	}
	if err := json.Unmarshal(source, &doc); err != nil {
		return out
	}

	addDep := func(depName, version string) {
		name := fmt.Sprintf("%s::dependency::%s", path, depName)
		out.Entities = append(out.Entities, entity.Entity{
			Name: name, Kind: entity.KindModule, FilePath: path,
			Metadata: map[string]string{"package": depName, "version": version},
		})
		out.Relations = append(out.Relations, entity.Relation{
			From: path, To: depName, Kind: entity.RelImports,
			ImportType: "npm_dependency",
		})
	}
	for dep, ver := range doc.Dependencies {
		addDep(dep, ver)
	}
	for dep, ver := range doc.DevDependencies {
		addDep(dep, ver)
	}
	for script, cmd := range doc.Scripts {
		name := fmt.Sprintf("%s::script::%s", path, script)
		out.Entities = append(out.Entities, entity.Entity{
			Name: name, Kind: entity.KindConstant, FilePath: path,
			Metadata: map[string]string{"npm_script": script, "command": cmd},
		})
		out.Relations = append(out.Relations, entity.Relation{From: path, To: name, Kind: entity.RelContains})
	}

	return out
}

func extractTSConfig(path string, source []byte) ParseOutput {
	var out ParseOutput
	var doc struct {
		CompilerOptions map[string]any `json:"compilerOptions"`
		Include         []string       `json:"include"`
	}
	if err := json.Unmarshal(source, &doc); err != nil {
		return out
	}
	for _, inc := range doc.Include {
		name := fmt.Sprintf("%s::include::%s", path, inc)
		out.Entities = append(out.Entities, entity.Entity{
			Name: name, Kind: entity.KindConstant, FilePath: path,
			Metadata: map[string]string{"tsconfig_include": inc},
		})
		out.Relations = append(out.Relations, entity.Relation{From: path, To: name, Kind: entity.RelContains})
	}
	return out
}

func extractDockerCompose(path string, source []byte) ParseOutput {
	var out ParseOutput
	var doc struct {
		Services map[string]struct {
			Image string   `yaml:"image"`
			Ports []string `yaml:"ports"`
		} `yaml:"services"`
	}
	if err := yaml.Unmarshal(source, &doc); err != nil {
		return out
	}
	for svc, def := range doc.Services {
		name := fmt.Sprintf("%s::service::%s", path, svc)
		out.Entities = append(out.Entities, entity.Entity{
			Name: name, Kind: entity.KindModule, FilePath: path,
			Metadata: map[string]string{"compose_service": svc, "image": def.Image},
		})
		out.Relations = append(out.Relations, entity.Relation{From: path, To: name, Kind: entity.RelContains})
	}
	return out
}

func extractGithubWorkflow(path string, source []byte) ParseOutput {
	var out ParseOutput
	var doc struct {
		Name string                 `yaml:"name"`
		Jobs map[string]map[any]any `yaml:"jobs"`
	}
	if err := yaml.Unmarshal(source, &doc); err != nil {
		return out
	}
	for job := range doc.Jobs {
		name := fmt.Sprintf("%s::job::%s", path, job)
		out.Entities = append(out.Entities, entity.Entity{
			Name: name, Kind: entity.KindModule, FilePath: path,
			Metadata: map[string]string{"workflow_job": job},
		})
		out.Relations = append(out.Relations, entity.Relation{From: path, To: name, Kind: entity.RelContains})
	}
	return out
}

func looksLikeKubernetesManifest(source []byte) bool {
	var probe struct {
		APIVersion string `yaml:"apiVersion"`
		Kind       string `yaml:"kind"`
	}
	if err := yaml.Unmarshal(source, &probe); err != nil {
		return false
	}
	return probe.APIVersion != "" && probe.Kind != ""
}

func extractKubernetesManifest(path string, source []byte) ParseOutput {
	var out ParseOutput
	var doc struct {
		APIVersion string `yaml:"apiVersion"`
		Kind       string `yaml:"kind"`
		Metadata   struct {
			Name string `yaml:"name"`
		} `yaml:"metadata"`
	}
	if err := yaml.Unmarshal(source, &doc); err != nil {
		return out
	}
	name := fmt.Sprintf("%s::%s::%s", path, doc.Kind, doc.Metadata.Name)
	out.Entities = append(out.Entities, entity.Entity{
		Name: name, Kind: entity.KindModule, FilePath: path,
		Metadata: map[string]string{"k8s_kind": doc.Kind, "k8s_api_version": doc.APIVersion},
	})
	out.Relations = append(out.Relations, entity.Relation{From: path, To: name, Kind: entity.RelContains})
	return out
}
