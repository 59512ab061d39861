package client

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/atinyakov/FieldInventory/internal/models"
)

// ErrInputClosed is returned when the input ends in the middle of a prompt.
var ErrInputClosed = errors.New("input closed")

// Prompter asks the operator for values line by line.
type Prompter struct {
	in  *bufio.Scanner
	out io.Writer
	// readPassword reads a line without echo. It falls back to a plain line
	// when nil.
	readPassword func() (string, error)
}

// NewPrompter reads from in and writes prompts to out. When in is a
// terminal, passwords are read without echo.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	p := &Prompter{in: bufio.NewScanner(in), out: out}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p.readPassword = func() (string, error) {
			b, err := term.ReadPassword(int(f.Fd()))
			fmt.Fprintln(out)
			return string(b), err
		}
	}
	return p
}

// Line prints label and returns the trimmed answer.
func (p *Prompter) Line(label string) (string, error) {
	fmt.Fprint(p.out, label)
	if !p.in.Scan() {
		if err := p.in.Err(); err != nil {
			return "", err
		}
		return "", ErrInputClosed
	}
	return strings.TrimSpace(p.in.Text()), nil
}

// Password prints label and reads a secret.
func (p *Prompter) Password(label string) (string, error) {
	if p.readPassword == nil {
		return p.Line(label)
	}
	fmt.Fprint(p.out, label)
	return p.readPassword()
}

// Bool asks a yes/no question. Empty answers are false.
func (p *Prompter) Bool(label string) (bool, error) {
	for {
		s, err := p.Line(label + " [s/N]: ")
		if err != nil {
			return false, err
		}
		switch strings.ToLower(s) {
		case "", "n", "no":
			return false, nil
		case "s", "si", "sí", "y", "yes":
			return true, nil
		}
		fmt.Fprintln(p.out, "Responda s o n.")
	}
}

// Item asks for the fields of a new inventory record. Optional fields may
// be left empty.
func (p *Prompter) Item() (models.NewItem, error) {
	var (
		in  models.NewItem
		err error
	)
	text := func(label string, dst *string) {
		if err == nil {
			*dst, err = p.Line(label)
		}
	}
	optText := func(label string, dst **string) {
		var s string
		text(label, &s)
		if err == nil && s != "" {
			*dst = &s
		}
	}
	flag := func(label string, dst *bool) {
		if err == nil {
			*dst, err = p.Bool(label)
		}
	}

	text("Persona: ", &in.Holder)
	text("DNI (8 dígitos): ", &in.DNI)
	text("Dispositivo: ", &in.Device)
	text("Control patrimonial: ", &in.AssetTag)
	text("Modelo: ", &in.Model)
	text("Número de serie: ", &in.SerialNumber)
	optText("IMEI (opcional): ", &in.IMEI)
	text("Teléfono: ", &in.Phone)
	text("Correo personal: ", &in.PersonalEmail)

	var cond string
	text("Estado (bien / mal estado / en reparacion) [bien]: ", &cond)
	if cond == "" {
		cond = string(models.ConditionGood)
	}
	in.Condition = models.Condition(cond)
	if in.Condition == models.ConditionInRepair {
		optText("Motivo de reparación: ", &in.RepairReason)
	}

	flag("Funda de tablet", &in.TabletCase)
	flag("Plan de datos", &in.DataPlan)
	flag("Power tech", &in.PowerTech)
	optText("Observaciones (opcional): ", &in.Notes)

	var value string
	text("Valor estimado (opcional): ", &value)
	if err == nil && value != "" {
		v, perr := strconv.ParseFloat(strings.ReplaceAll(value, ",", "."), 64)
		if perr != nil {
			return in, fmt.Errorf("valor estimado inválido: %w", perr)
		}
		in.EstimatedValue = &v
	}

	var warranty string
	text("Garantía vence (AAAA-MM-DD, opcional): ", &warranty)
	if err == nil && warranty != "" {
		d, perr := time.Parse(time.DateOnly, warranty)
		if perr != nil {
			return in, fmt.Errorf("fecha de garantía inválida: %w", perr)
		}
		in.WarrantyExpiresAt = &d
	}
	return in, err
}
