// Copyright (C) 2026 l3montree GmbH
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package operations

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type ComposeFile struct {
	Services map[string]ComposeService `yaml:"services"`
}

type ComposeService struct {
	Image       string        `yaml:"image"`
	Build       any           `yaml:"build"`
	Environment EnvMap        `yaml:"environment"`
	Ports       []PortMapping `yaml:"ports"`
	DependsOn   DependsOn     `yaml:"depends_on"`
}

// EnvMap accepts the list ("KEY=value") and the map form of environment.
type EnvMap map[string]string

func (e *EnvMap) UnmarshalYAML(value *yaml.Node) error {
	res := EnvMap{}
	switch value.Kind {
	case yaml.SequenceNode:
		var list []string
		if err := value.Decode(&list); err != nil {
			return err
		}
		for _, entry := range list {
			k, v, _ := strings.Cut(entry, "=")
			res[k] = v
		}
	case yaml.MappingNode:
		var m map[string]*string
		if err := value.Decode(&m); err != nil {
			return err
		}
		for k, v := range m {
			if v != nil {
				res[k] = *v
			} else {
				res[k] = ""
			}
		}
	default:
		return fmt.Errorf("line %d: environment must be a list or a map", value.Line)
	}
	*e = res
	return nil
}

// DependsOn accepts the list and the map form of depends_on.
type DependsOn []string

func (d *DependsOn) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.SequenceNode:
		var list []string
		if err := value.Decode(&list); err != nil {
			return err
		}
		*d = list
	case yaml.MappingNode:
		var m map[string]any
		if err := value.Decode(&m); err != nil {
			return err
		}
		names := make([]string, 0, len(m))
		for name := range m {
			names = append(names, name)
		}
		sort.Strings(names)
		*d = names
	default:
		return fmt.Errorf("line %d: depends_on must be a list or a map", value.Line)
	}
	return nil
}

type PortMapping struct {
	HostIP string
	// HostPort is 0 when only the container port is exposed.
	HostPort      int
	ContainerPort int
	Protocol      string
}

func (p *PortMapping) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		parsed, err := ParsePortMapping(value.Value)
		if err != nil {
			return fmt.Errorf("line %d: %w", value.Line, err)
		}
		*p = parsed
	case yaml.MappingNode:
		var long struct {
			Target    int    `yaml:"target"`
			Published any    `yaml:"published"`
			HostIP    string `yaml:"host_ip"`
			Protocol  string `yaml:"protocol"`
		}
		if err := value.Decode(&long); err != nil {
			return err
		}
		*p = PortMapping{HostIP: long.HostIP, ContainerPort: long.Target, Protocol: long.Protocol}
		if long.Published != nil {
			port, err := firstPort(fmt.Sprint(long.Published))
			if err != nil {
				return fmt.Errorf("line %d: %w", value.Line, err)
			}
			p.HostPort = port
		}
	default:
		return fmt.Errorf("line %d: invalid port definition", value.Line)
	}
	if p.Protocol == "" {
		p.Protocol = "tcp"
	}
	return nil
}

// firstPort handles single ports and ranges like "3000-3005".
func firstPort(s string) (int, error) {
	start, _, _ := strings.Cut(strings.TrimSpace(s), "-")
	port, err := strconv.Atoi(start)
	if err != nil {
		return 0, errors.Errorf("invalid port %q", s)
	}
	return port, nil
}

// ParsePortMapping reads the short syntax: "80", "8080:80", "127.0.0.1:8080:80/udp".
func ParsePortMapping(s string) (PortMapping, error) {
	var p PortMapping
	spec, protocol, _ := strings.Cut(strings.TrimSpace(s), "/")
	p.Protocol = protocol

	parts := strings.Split(spec, ":")
	var host, container string
	switch len(parts) {
	case 1:
		container = parts[0]
	case 2:
		host, container = parts[0], parts[1]
	case 3:
		p.HostIP, host, container = parts[0], parts[1], parts[2]
	default:
		return p, errors.Errorf("invalid port mapping %q", s)
	}

	var err error
	if p.ContainerPort, err = firstPort(container); err != nil {
		return p, err
	}
	if host != "" {
		if p.HostPort, err = firstPort(host); err != nil {
			return p, err
		}
	}
	return p, nil
}

func ParseCompose(path string) (ComposeFile, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return ComposeFile{}, errors.Wrap(err, "could not read compose file")
	}
	var file ComposeFile
	if err := yaml.Unmarshal(content, &file); err != nil {
		return ComposeFile{}, errors.Wrapf(err, "could not parse %s", path)
	}
	if file.Services == nil {
		file.Services = map[string]ComposeService{}
	}
	return file, nil
}

// ValidateCompose reports services without image or build, unknown dependencies and host ports
// published more than once.
func ValidateCompose(file ComposeFile) []string {
	violations := []string{}
	names := make([]string, 0, len(file.Services))
	for name := range file.Services {
		names = append(names, name)
	}
	sort.Strings(names)

	hostPorts := map[string][]string{}
	for _, name := range names {
		svc := file.Services[name]
		if svc.Image == "" && svc.Build == nil {
			violations = append(violations, fmt.Sprintf("service %s has neither image nor build", name))
		}
		for _, dep := range svc.DependsOn {
			if _, ok := file.Services[dep]; !ok {
				violations = append(violations, fmt.Sprintf("service %s depends on unknown service %s", name, dep))
			}
		}
		for _, p := range svc.Ports {
			if p.HostPort == 0 {
				continue
			}
			key := fmt.Sprintf("%d/%s", p.HostPort, p.Protocol)
			hostPorts[key] = append(hostPorts[key], name)
		}
	}

	keys := make([]string, 0, len(hostPorts))
	for k := range hostPorts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if services := hostPorts[k]; len(services) > 1 {
			violations = append(violations, fmt.Sprintf("host port %s is published by %s", k, strings.Join(services, ", ")))
		}
	}
	return violations
}

// ComposePortMap returns the first published host port of every service.
func ComposePortMap(file ComposeFile) PortMap {
	m := PortMap{}
	for name, svc := range file.Services {
		for _, p := range svc.Ports {
			if p.HostPort != 0 {
				m[name] = p.HostPort
				break
			}
		}
	}
	return m
}
