package cdsync

// Templates use [[ ]] delimiters so CI expressions such as ${{ github.sha }}
// pass through untouched.

var githubGenerateTemplate = `# Managed by tsera cd sync. Local edits are preserved unless --force is used.
name: tsera generate

on:
  push:
    branches: [main]
    paths:
      - '[[ .EntitiesDir ]]/**'
      - 'tsera.config.*'
  pull_request:
    paths:
      - '[[ .EntitiesDir ]]/**'
      - 'tsera.config.*'

jobs:
  drift:
    runs-on: ubuntu-latest
    steps:
      - uses: actions/checkout@v4

      - name: Install tsera
        run: go install [[ .Module ]]/cmd/tsera@[[ .ToolVersion ]]

      - name: Plan
        run: tsera plan --json > tsera-plan.json

      - name: Generate
        run: tsera generate

      - name: Check for drift
        run: |
          if ! git diff --exit-code; then
            echo "::error::generated artifacts for [[ .ProjectName ]] are out of date, run 'tsera generate'"
            exit 1
          fi

      - uses: actions/upload-artifact@v4
        if: always()
        with:
          name: tsera-plan
          path: tsera-plan.json
`

var githubMigrationsTemplate = `# Managed by tsera cd sync. Local edits are preserved unless --force is used.
name: tsera migrations

on:
  push:
    branches: [main]
    paths:
      - '[[ .OutputPrefix ]]migrations/**'

jobs:
  check:
    runs-on: ubuntu-latest
    steps:
      - uses: actions/checkout@v4

      - name: List [[ .Dialect ]] migrations
        run: ls -1 [[ .OutputPrefix ]]migrations/*.sql
`

var gitlabTemplate = `# Managed by tsera cd sync. Local edits are preserved unless --force is used.
stages:
  - verify

tsera:drift:
  stage: verify
  image: golang:1.25
  rules:
    - changes:
        - [[ .EntitiesDir ]]/**/*
        - tsera.config.*
  script:
    - go install [[ .Module ]]/cmd/tsera@[[ .ToolVersion ]]
    - tsera plan --json > tsera-plan.json
    - tsera generate
    - git diff --exit-code || (echo "generated artifacts for [[ .ProjectName ]] are out of date" && exit 1)
  artifacts:
    when: always
    paths:
      - tsera-plan.json
`
