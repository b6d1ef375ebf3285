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
	"net"
	"sort"
	"strconv"

	"github.com/l3montree-dev/devkit/utils"
)

// PortMap maps service names to the host port they listen on.
type PortMap map[string]int

func ReadPortMap(path string) (PortMap, error) {
	m, err := utils.ReadJSON[PortMap](path)
	if err != nil {
		return nil, err
	}
	if m == nil {
		m = PortMap{}
	}
	return m, nil
}

func WritePortMap(path string, m PortMap) error {
	return utils.WriteJSON(path, m)
}

type PortConflict struct {
	Port     int      `json:"port"`
	Services []string `json:"services"`
}

// PortConflicts lists every port used by more than one service, sorted by port.
func PortConflicts(m PortMap) []PortConflict {
	byPort := map[int][]string{}
	for service, port := range m {
		byPort[port] = append(byPort[port], service)
	}

	conflicts := []PortConflict{}
	for port, services := range byPort {
		if len(services) < 2 {
			continue
		}
		sort.Strings(services)
		conflicts = append(conflicts, PortConflict{Port: port, Services: services})
	}
	sort.Slice(conflicts, func(i, j int) bool { return conflicts[i].Port < conflicts[j].Port })
	return conflicts
}

type PortStatus struct {
	Service string `json:"service"`
	Port    int    `json:"port"`
	Free    bool   `json:"free"`
	Error   string `json:"error,omitempty"`
}

// CheckPorts tries to listen on every port on localhost to see whether it is still free.
func CheckPorts(m PortMap) []PortStatus {
	res := make([]PortStatus, 0, len(m))
	for _, service := range utils.SortedKeys(m) {
		port := m[service]
		status := PortStatus{Service: service, Port: port}
		if port < 1 || port > 65535 {
			status.Error = fmt.Sprintf("invalid port %d", port)
			res = append(res, status)
			continue
		}

		l, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
		if err != nil {
			status.Error = err.Error()
		} else {
			status.Free = true
			_ = l.Close()
		}
		res = append(res, status)
	}
	return res
}
