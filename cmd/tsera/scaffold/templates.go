// Copyright 2026 © The TSera Authors
// SPDX-License-Identifier: Apache-2.0

package scaffold

const configYAMLTemplate = `# {{.ProjectName}} tsera configuration

project:
  name: "{{.ProjectName}}"
  version: "0.1.0"

paths:
  entities: "entities"
  output: "."

artifacts:
  schema: true
  migration: true
  doc: true
  test: true
  openapi: true

db:
  dialect: "{{.Dialect}}"

log:
  level: "info"
  format: "text"

telemetry:
  exporter: "none"
{{- if .CIProvider}}

cd:
  provider: "{{.CIProvider}}"
{{- end}}
`

const configDevYAMLTemplate = `# Development overrides, selected with --profile dev or TSERA_PROFILE=dev

log:
  level: "debug"

engine:
  include_unchanged: true

dev:
  debounce_ms: 200
`

const gitignoreTemplate = `# tsera local state
.tsera/audit.db
.tsera/*.tmp.*
`

const readmeTemplate = `# {{.ProjectName}}

Entity definitions live in ` + "`entities/`" + `. Generated artifacts are tracked in
` + "`.tsera/manifest.json`" + `; only changed files are rewritten.

    tsera plan        # show pending changes
    tsera generate    # write them
    tsera dev         # regenerate on save
`

const userEntityTemplate = `name: User
description: An account holder.
fields:
  - name: id
    type: uuid
  - name: email
    type: string
    unique: true
  - name: displayName
    type: string
    optional: true
  - name: createdAt
    type: datetime
`

const postEntityTemplate = `entity "Post" {
  description = "A blog post."

  field "id" {
    type = "uuid"
  }
  field "authorId" {
    type        = "uuid"
    description = "User.id of the author"
  }
  field "title" {
    type = "string"
  }
  field "body" {
    type = "text"
  }
  field "published" {
    type    = "boolean"
    default = false
  }
}
`
