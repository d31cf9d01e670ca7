/*
Package types defines the data model shared across the control plane:

  - ServiceDescriptor: the catalog's static definition of a service
  - InstallRequest / InstallResult / InstallProgress: install-run bookkeeping
  - HistoryEntry / ServiceSummary: the per-service event log and its
    derived current-state view
  - WizardState / StepState / TimelineEvent: the versioned setup-wizard
    document and its per-step audit trail

All enums use typed string constants, matching the rest of the stack.
Optional fields use pointers so a present-but-zero value (an explicit
empty Detail, a Retries of 0) can be told apart from "not supplied" in
partial updates such as StepUpdate.
*/
package types
