// Package manager applies the SR-IOV device policies and bonds of a
// configuration file to the interfaces found by discovery.
package manager

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"example.com/netadapter/internal/config"
	"example.com/netadapter/pkg"
	"example.com/netadapter/pkg/connection"
	"example.com/netadapter/pkg/feature/bonding"
	"example.com/netadapter/pkg/feature/virtualization"
	"example.com/netadapter/pkg/types"
)

// Manager configures one host
type Manager struct {
	config *config.Config
	runner connection.Runner
	logger *log.Entry
}

// Result summarizes an Apply run
type Result struct {
	Configured []string `json:"configured"`
	Skipped    []string `json:"skipped"`
	Failed     []string `json:"failed"`
	Bonds      []string `json:"bonds"`
}

func New(cfg *config.Config, runner connection.Runner) *Manager {
	return &Manager{
		config: cfg,
		runner: runner,
		logger: pkg.WithField("component", "manager"),
	}
}

// ConfigureInterfaces applies the matching device policy to every PF and BTS
// record. A failing interface is logged and recorded; the others proceed.
func (m *Manager) ConfigureInterfaces(ctx context.Context, records []types.InterfaceRecord) *Result {
	m.logger.Info("Configuring SR-IOV interfaces")

	res := &Result{}
	for _, rec := range records {
		if types.RequireType(rec, types.PF, types.BTS) != nil || rec.PCIDevice == nil {
			continue
		}
		applied, err := m.configureInterface(ctx, rec)
		switch {
		case err != nil:
			m.logger.WithError(err).WithField("interface", rec.ID()).Error("Error configuring interface")
			res.Failed = append(res.Failed, rec.ID())
		case applied:
			res.Configured = append(res.Configured, rec.ID())
		default:
			res.Skipped = append(res.Skipped, rec.ID())
		}
	}
	return res
}

// configureInterface returns false when no policy matches rec.
func (m *Manager) configureInterface(ctx context.Context, rec types.InterfaceRecord) (bool, error) {
	logger := m.logger.WithFields(log.Fields{"interface": rec.ID(), "device": rec.PCIDevice.String()})

	policy := m.config.GetDevicePolicy(*rec.PCIDevice)
	if policy == nil {
		logger.Debug("No policy found for interface")
		return false, nil
	}
	logger.WithField("policy", policy.Description).Info("Applying policy")

	v := virtualization.New(m.runner, rec)
	numVFs := policy.NumVFs
	total, err := v.MaxVFs(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to read sriov_totalvfs: %w", err)
	}
	if numVFs > total {
		logger.Warnf("Requested %d VFs but device only supports %d", numVFs, total)
		numVFs = total
	}

	if err := v.CreateVFs(ctx, numVFs); err != nil {
		return false, err
	}

	vfs, err := policyVFs(policy, numVFs)
	if err != nil {
		return false, err
	}
	for _, vf := range vfs {
		if err := m.configureVF(ctx, v, policy, vf); err != nil {
			return false, fmt.Errorf("vf %d: %w", vf, err)
		}
	}
	return true, nil
}

// policyVFs returns the VF indices the per-VF settings apply to: the policy
// range, or every created VF.
func policyVFs(policy *config.DevicePolicy, numVFs int) ([]int, error) {
	if policy.VFRange == "" {
		vfs := make([]int, numVFs)
		for i := range vfs {
			vfs[i] = i
		}
		return vfs, nil
	}
	indices, err := config.ParseVFRange(policy.VFRange)
	if err != nil {
		return nil, err
	}
	var vfs []int
	for _, i := range indices {
		if i >= 0 && i < numVFs {
			vfs = append(vfs, i)
		}
	}
	return vfs, nil
}

func (m *Manager) configureVF(ctx context.Context, v *virtualization.Virtualization, policy *config.DevicePolicy, vf int) error {
	if policy.Trust != nil {
		if err := v.SetTrust(ctx, vf, *policy.Trust); err != nil {
			return err
		}
	}
	if policy.SpoofCheck != nil {
		if err := v.SetSpoofCheck(ctx, vf, *policy.SpoofCheck); err != nil {
			return err
		}
	}
	if policy.LinkState != "" {
		state, err := virtualization.ParseLinkState(policy.LinkState)
		if err != nil {
			return err
		}
		if err := v.SetLinkState(ctx, vf, state); err != nil {
			return err
		}
	}
	return nil
}

// SetupBonds creates every configured bond that does not exist yet.
func (m *Manager) SetupBonds(ctx context.Context, namespace string) ([]string, error) {
	b := bonding.New(m.runner, namespace)
	existing, err := b.BondInterfaces(ctx)
	if err != nil {
		return nil, err
	}
	present := make(map[string]bool, len(existing))
	for _, name := range existing {
		present[name] = true
	}

	var created []string
	var errs []error
	for _, bond := range m.config.Bonds {
		if present[bond.Name] {
			m.logger.WithField("bond", bond.Name).Info("Bond already exists")
			continue
		}
		if err := b.Setup(ctx, bond); err != nil {
			errs = append(errs, err)
			continue
		}
		created = append(created, bond.Name)
	}
	return created, errors.Join(errs...)
}

// Apply configures SR-IOV policies and bonds, in that order.
func (m *Manager) Apply(ctx context.Context, namespace string, records []types.InterfaceRecord) (*Result, error) {
	res := m.ConfigureInterfaces(ctx, records)
	bonds, err := m.SetupBonds(ctx, namespace)
	res.Bonds = bonds
	if err != nil {
		return res, err
	}
	if len(res.Failed) > 0 {
		return res, fmt.Errorf("%d interface(s) failed to configure", len(res.Failed))
	}
	return res, nil
}
