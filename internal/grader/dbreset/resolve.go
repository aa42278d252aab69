package dbreset

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/build-flow-labs/apigrader/inspect"
)

// SchemaPath is where Prisma projects keep their schema.
const SchemaPath = "prisma/schema.prisma"

// ErrNoDatabaseURL is returned when no URL can be found for a project.
var ErrNoDatabaseURL = errors.New("no database URL")

// ResolveURL finds the database URL of a project. An explicit URL wins.
// Otherwise the datasource of schema.prisma is used; env("VAR") is looked up
// in the project's .env first, then in the process environment.
func ResolveURL(src inspect.Source, explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}

	content, ok := src.Read(SchemaPath)
	if !ok {
		return "", fmt.Errorf("%w: %s not found", ErrNoDatabaseURL, SchemaPath)
	}
	schema := inspect.ParsePrismaSchema(content)
	if schema.URL != "" {
		return schema.URL, nil
	}
	if schema.URLEnv == "" {
		return "", fmt.Errorf("%w: datasource has no url", ErrNoDatabaseURL)
	}

	if dotenv, ok := src.Read(".env"); ok {
		vars, err := godotenv.Unmarshal(dotenv)
		if err != nil {
			return "", fmt.Errorf("parsing .env: %w", err)
		}
		if v := vars[schema.URLEnv]; v != "" {
			return v, nil
		}
	}
	if v := os.Getenv(schema.URLEnv); v != "" {
		return v, nil
	}
	return "", fmt.Errorf("%w: %s is not set", ErrNoDatabaseURL, schema.URLEnv)
}
