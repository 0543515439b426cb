package service

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/berfenger/sunspecmon/internal/core/domain"
	"github.com/berfenger/sunspecmon/internal/core/port"
	"github.com/berfenger/sunspecmon/pkg/gateway"
	"github.com/google/uuid"
)

const (
	GROUP_INVERTER        = "Inverter"
	GROUP_PV_LINKS        = "PV Links"
	GROUP_BATTERY_STORAGE = "Battery Storage"
)

type groupRule struct {
	name  string
	match func(p gateway.ControlPointState) bool
}

// first match wins, groups are emitted in this order
var groupRules = []groupRule{
	{GROUP_INVERTER, func(p gateway.ControlPointState) bool {
		return (p.ModelID == 64200 && p.PointName == "SysMd") ||
			(p.ModelID == 802 && p.PointName == "SetInvState")
	}},
	{GROUP_PV_LINKS, func(p gateway.ControlPointState) bool {
		return p.ModelID == 64251
	}},
	{GROUP_BATTERY_STORAGE, func(p gateway.ControlPointState) bool {
		return p.ModelID == 802
	}},
}

// Translate returns the display form of the current value: the symbol name
// when a symbol code matches, the plain string form otherwise.
func Translate(p gateway.ControlPointState) string {
	if code, ok := p.CurrentValue.Code(); ok {
		for _, s := range p.Symbols {
			if s.Value == code {
				return s.Name
			}
		}
	}
	return p.CurrentValue.String()
}

func findSymbol(p gateway.ControlPointState, value string) (gateway.ControlSymbol, bool) {
	v := strings.TrimSpace(value)
	for _, s := range p.Symbols {
		if strings.EqualFold(s.Name, v) {
			return s, true
		}
	}
	if code, err := strconv.ParseInt(v, 10, 64); err == nil {
		for _, s := range p.Symbols {
			if s.Value == code {
				return s, true
			}
		}
	}
	return gateway.ControlSymbol{}, false
}

// normalize maps equivalent spellings of a value onto one form so "1",
// "1.0" and an enum's code and name compare equal.
func normalize(p gateway.ControlPointState, value string) string {
	v := strings.TrimSpace(value)
	if len(p.Symbols) > 0 {
		if s, ok := findSymbol(p, v); ok {
			return s.Name
		}
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return v
}

func validateValue(p gateway.ControlPointState, value string) error {
	v := strings.TrimSpace(value)
	if v == "" {
		return fmt.Errorf("%w: empty value for %s", domain.ErrInvalidValue, p.PointName)
	}
	if len(p.Symbols) > 0 || strings.EqualFold(p.DataType, "enum16") || strings.EqualFold(p.DataType, "enum32") {
		if _, ok := findSymbol(p, v); !ok {
			return fmt.Errorf("%w: %q is not a symbol of %s", domain.ErrInvalidValue, v, p.PointName)
		}
		return nil
	}
	if strings.EqualFold(p.DataType, "uint16") {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 || n > 65535 {
			return fmt.Errorf("%w: %q is not a uint16", domain.ErrInvalidValue, v)
		}
	}
	return nil
}

// wireValue is what the gateway expects: enum codes, everything else as typed.
func wireValue(p gateway.ControlPointState, value string) (string, string) {
	v := strings.TrimSpace(value)
	if s, ok := findSymbol(p, v); ok {
		return strconv.FormatInt(s.Value, 10), s.Name
	}
	return v, ""
}

// GroupControlPoints buckets points into the fixed groups. Points no rule
// matches are left out, as are empty groups.
func GroupControlPoints(points []gateway.ControlPointState) map[string][]gateway.ControlPointState {
	groups := make(map[string][]gateway.ControlPointState)
	for _, p := range points {
		for _, rule := range groupRules {
			if rule.match(p) {
				groups[rule.name] = append(groups[rule.name], p)
				break
			}
		}
	}
	return groups
}

type transaction struct {
	state        domain.TxState
	pending      string
	conflict     bool
	confirmation *domain.Confirmation
}

// DefaultControlLedger tracks one write transaction per control point.
// It is owned by a single actor and is not safe for concurrent use.
type DefaultControlLedger struct {
	points []gateway.ControlPointState
	index  map[domain.PointKey]int
	txs    map[domain.PointKey]*transaction
}

func NewControlLedger() *DefaultControlLedger {
	return &DefaultControlLedger{
		index: make(map[domain.PointKey]int),
		txs:   make(map[domain.PointKey]*transaction),
	}
}

// Refresh replaces the point set with a fresh poll and returns the keys
// whose staged edit was reset.
func (l *DefaultControlLedger) Refresh(points []gateway.ControlPointState) []domain.PointKey {
	previous := l.points
	prevIndex := l.index

	l.points = append([]gateway.ControlPointState(nil), points...)
	l.index = make(map[domain.PointKey]int, len(points))
	for i, p := range l.points {
		l.index[domain.KeyOf(p)] = i
	}

	var reset []domain.PointKey
	for key, tx := range l.txs {
		i, ok := l.index[key]
		if !ok {
			// an in-flight write must still be able to complete
			if tx.state != domain.TxApplying {
				delete(l.txs, key)
				if tx.state == domain.TxStaged {
					reset = append(reset, key)
				}
			}
			continue
		}
		changed := true
		if j, ok := prevIndex[key]; ok {
			changed = Translate(previous[j]) != Translate(l.points[i])
		}
		if !changed {
			continue
		}
		switch tx.state {
		case domain.TxStaged:
			tx.state = domain.TxIdle
			tx.pending = ""
			tx.conflict = true
			reset = append(reset, key)
		case domain.TxConfirming:
			tx.conflict = true
		}
	}
	return reset
}

func (l *DefaultControlLedger) point(key domain.PointKey) (gateway.ControlPointState, bool) {
	i, ok := l.index[key]
	if !ok {
		return gateway.ControlPointState{}, false
	}
	return l.points[i], true
}

func (l *DefaultControlLedger) tx(key domain.PointKey) *transaction {
	tx, ok := l.txs[key]
	if !ok {
		tx = &transaction{state: domain.TxIdle}
		l.txs[key] = tx
	}
	return tx
}

func (l *DefaultControlLedger) State(key domain.PointKey) domain.TxState {
	if tx, ok := l.txs[key]; ok {
		return tx.state
	}
	return domain.TxIdle
}

func (l *DefaultControlLedger) Stage(key domain.PointKey, value string) (domain.ControlView, error) {
	p, ok := l.point(key)
	if !ok {
		return domain.ControlView{}, fmt.Errorf("%w: %s", domain.ErrUnknownPoint, key)
	}
	tx := l.tx(key)
	switch tx.state {
	case domain.TxApplying:
		return l.view(p), domain.ErrWriteInProgress
	case domain.TxConfirming:
		return l.view(p), domain.ErrConfirmationPending
	}
	if err := validateValue(p, value); err != nil {
		return l.view(p), fmt.Errorf("%w: %w", domain.ErrWriteRejected, err)
	}
	tx.state = domain.TxStaged
	tx.pending = strings.TrimSpace(value)
	tx.conflict = false
	return l.view(p), nil
}

func (l *DefaultControlLedger) canApply(p gateway.ControlPointState, tx *transaction) bool {
	return tx.state == domain.TxStaged && normalize(p, tx.pending) != normalize(p, Translate(p))
}

func (l *DefaultControlLedger) RequestConfirmation(key domain.PointKey) (domain.Confirmation, error) {
	p, ok := l.point(key)
	if !ok {
		return domain.Confirmation{}, fmt.Errorf("%w: %s", domain.ErrUnknownPoint, key)
	}
	tx := l.tx(key)
	switch tx.state {
	case domain.TxApplying:
		return domain.Confirmation{}, domain.ErrWriteInProgress
	case domain.TxConfirming:
		return domain.Confirmation{}, domain.ErrConfirmationPending
	}
	if !l.canApply(p, tx) {
		return domain.Confirmation{}, domain.ErrNothingToApply
	}
	value, symbol := wireValue(p, tx.pending)
	conf := domain.Confirmation{
		ID:         uuid.New(),
		Key:        key,
		Point:      p,
		Value:      value,
		SymbolName: symbol,
	}
	tx.state = domain.TxConfirming
	tx.confirmation = &conf
	return conf, nil
}

func (l *DefaultControlLedger) Cancel(key domain.PointKey) (domain.ControlView, error) {
	p, ok := l.point(key)
	if !ok {
		return domain.ControlView{}, fmt.Errorf("%w: %s", domain.ErrUnknownPoint, key)
	}
	tx := l.tx(key)
	switch tx.state {
	case domain.TxApplying:
		return l.view(p), domain.ErrWriteInProgress
	case domain.TxConfirming:
		tx.state = domain.TxStaged
		tx.confirmation = nil
	}
	return l.view(p), nil
}

func (l *DefaultControlLedger) Confirm(key domain.PointKey, id uuid.UUID) (gateway.WriteRequest, error) {
	tx, ok := l.txs[key]
	if !ok {
		return gateway.WriteRequest{}, domain.ErrConfirmationMismatch
	}
	if tx.state == domain.TxApplying {
		return gateway.WriteRequest{}, domain.ErrWriteInProgress
	}
	if tx.state != domain.TxConfirming || tx.confirmation == nil || tx.confirmation.ID != id {
		return gateway.WriteRequest{}, domain.ErrConfirmationMismatch
	}
	tx.state = domain.TxApplying
	conf := tx.confirmation
	return gateway.WriteRequest{
		SerialNumber: conf.Key.SerialNumber,
		ModelID:      conf.Key.ModelID,
		PointName:    conf.Key.PointName,
		Value:        conf.Value,
	}, nil
}

func (l *DefaultControlLedger) Complete(key domain.PointKey, success bool, message string) domain.Notification {
	tx := l.tx(key)
	label := key.PointName
	if p, ok := l.point(key); ok && p.Label != "" {
		label = p.Label
	}
	if success {
		tx.state = domain.TxSucceeded
		if message == "" {
			message = fmt.Sprintf("%s updated", label)
		}
	} else {
		tx.state = domain.TxFailed
		if message == "" {
			message = fmt.Sprintf("%s write failed", label)
		}
	}
	tx.pending = ""
	tx.confirmation = nil
	return domain.Notification{
		ID:      uuid.New(),
		Key:     key,
		Success: success,
		Message: message,
	}
}

// Settle closes a finished transaction once its notification is dismissed.
func (l *DefaultControlLedger) Settle(key domain.PointKey) {
	tx, ok := l.txs[key]
	if !ok {
		return
	}
	if tx.state == domain.TxSucceeded || tx.state == domain.TxFailed {
		delete(l.txs, key)
	}
}

func (l *DefaultControlLedger) view(p gateway.ControlPointState) domain.ControlView {
	v := domain.ControlView{
		Point:   p,
		Display: Translate(p),
		State:   domain.TxIdle,
	}
	if tx, ok := l.txs[domain.KeyOf(p)]; ok {
		v.State = tx.state
		v.Pending = tx.pending
		v.Conflict = tx.conflict
		v.CanApply = l.canApply(p, tx)
		if tx.confirmation != nil {
			conf := *tx.confirmation
			v.Confirmation = &conf
		}
	}
	return v
}

func (l *DefaultControlLedger) Groups() []domain.ControlGroup {
	grouped := GroupControlPoints(l.points)
	var groups []domain.ControlGroup
	for _, rule := range groupRules {
		points, ok := grouped[rule.name]
		if !ok {
			continue
		}
		group := domain.ControlGroup{Name: rule.name, Points: make([]domain.ControlView, 0, len(points))}
		for _, p := range points {
			group.Points = append(group.Points, l.view(p))
		}
		groups = append(groups, group)
	}
	return groups
}

// ensure interface compliance
var _ port.ControlLedger = (*DefaultControlLedger)(nil)
