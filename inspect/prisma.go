package inspect

import (
	"bufio"
	"regexp"
	"strings"
)

var (
	modelRegex      = regexp.MustCompile(`^\s*model\s+(\w+)\s*\{`)
	datasourceRegex = regexp.MustCompile(`^\s*datasource\s+\w+\s*\{`)
	providerRegex   = regexp.MustCompile(`^\s*provider\s*=\s*"([^"]+)"`)
	urlLiteralRegex = regexp.MustCompile(`^\s*url\s*=\s*"([^"]+)"`)
	urlEnvRegex     = regexp.MustCompile(`^\s*url\s*=\s*env\(\s*"([^"]+)"\s*\)`)
)

// PrismaSchema is what the grader extracts from schema.prisma.
type PrismaSchema struct {
	Models    []string
	Relations bool
	// Provider is the datasource provider, e.g. "sqlite" or "postgresql".
	Provider string
	// URL is a literal datasource url; URLEnv names the variable when the
	// schema uses env("...").
	URL    string
	URLEnv string
}

// ParsePrismaSchema extracts models, relation usage and the datasource.
func ParsePrismaSchema(content string) *PrismaSchema {
	s := &PrismaSchema{
		Relations: strings.Contains(content, "@relation"),
	}

	scanner := bufio.NewScanner(strings.NewReader(content))
	inDatasource := false
	for scanner.Scan() {
		line := scanner.Text()
		if m := modelRegex.FindStringSubmatch(line); m != nil {
			s.Models = append(s.Models, m[1])
			continue
		}
		if datasourceRegex.MatchString(line) {
			inDatasource = true
			continue
		}
		if !inDatasource {
			continue
		}
		if strings.TrimSpace(line) == "}" {
			inDatasource = false
			continue
		}
		if m := providerRegex.FindStringSubmatch(line); m != nil {
			s.Provider = m[1]
		} else if m := urlEnvRegex.FindStringSubmatch(line); m != nil {
			s.URLEnv = m[1]
		} else if m := urlLiteralRegex.FindStringSubmatch(line); m != nil {
			s.URL = m[1]
		}
	}
	return s
}

// HasModel reports whether a model with that exact name is declared.
func (s *PrismaSchema) HasModel(name string) bool {
	for _, m := range s.Models {
		if m == name {
			return true
		}
	}
	return false
}
