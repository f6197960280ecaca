package rulestore

// Starter is written by `thymus init`.
const Starter = `# thymus invariants
# Each entry is checked against every matching file on edit and on scan.
version: 1
invariants:
  - id: no-db-in-routes
    type: boundary
    severity: error
    description: Route handlers must go through the service layer
    scope_glob: "src/routes/**"
    forbidden_imports:
      - "**/db/**"
      - "prisma"

  - id: no-console-log
    type: pattern
    severity: warning
    description: Use the project logger instead of console.log
    scope_glob: "src/**"
    scope_glob_exclude:
      - "**/*.test.*"
    forbidden_pattern: "console\\.log\\("

  - id: services-have-tests
    type: convention
    severity: info
    description: Every service has a colocated test
    scope_glob: "src/services/**"
    rule: Each service file needs a test file next to it
`
