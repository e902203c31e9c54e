package picker

import (
	"context"
	"dosgo/btSerial/comm"
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

// Window shows the devices of Source in a desktop window with Connect and
// Cancel buttons. Closing the window cancels. PickDevice runs the fyne event
// loop, so it must be called from the main goroutine.
type Window struct {
	Source Source
	AppID  string
}

// selection records the outcome of the window.
type selection struct {
	devices []comm.DeviceHandle
	index   int
	chosen  comm.DeviceHandle
	picked  bool
}

func newSelection(devices []comm.DeviceHandle) *selection {
	return &selection{devices: devices, index: -1}
}

func (s *selection) highlight(i int) {
	if i >= 0 && i < len(s.devices) {
		s.index = i
	}
}

// confirm picks the highlighted device. It reports false when nothing is
// highlighted.
func (s *selection) confirm() bool {
	if s.index < 0 {
		return false
	}
	s.chosen = s.devices[s.index]
	s.picked = true
	return true
}

func (p *Window) PickDevice(ctx context.Context) (comm.DeviceHandle, bool, error) {
	devices, err := p.Source.Devices(ctx)
	if err != nil {
		return comm.DeviceHandle{}, false, fmt.Errorf("list devices: %w", err)
	}
	if len(devices) == 0 {
		return comm.DeviceHandle{}, false, nil
	}

	id := p.AppID
	if id == "" {
		id = "com.dosgo.btserial"
	}
	a := app.NewWithID(id)
	w := a.NewWindow("Select a Bluetooth device")
	sel := newSelection(devices)

	connectBtn := widget.NewButton("Connect", func() {
		if sel.confirm() {
			a.Quit()
		}
	})
	connectBtn.Importance = widget.HighImportance
	connectBtn.Disable()

	deviceList := widget.NewList(
		func() int { return len(devices) },
		func() fyne.CanvasObject {
			return container.NewVBox(
				widget.NewLabelWithStyle("", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
				widget.NewLabel(""),
			)
		},
		func(i widget.ListItemID, o fyne.CanvasObject) {
			rows := o.(*fyne.Container).Objects
			rows[0].(*widget.Label).SetText(title(devices[i]))
			rows[1].(*widget.Label).SetText(describe(devices[i]))
		},
	)
	deviceList.OnSelected = func(i widget.ListItemID) {
		sel.highlight(i)
		connectBtn.Enable()
	}

	cancelBtn := widget.NewButton("Cancel", func() {
		a.Quit()
	})

	w.SetContent(container.NewBorder(
		widget.NewLabelWithStyle("Paired devices", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		container.NewHBox(cancelBtn, connectBtn),
		nil, nil,
		deviceList,
	))
	w.SetCloseIntercept(func() {
		a.Quit()
	})
	w.Resize(fyne.NewSize(420, 360))
	w.CenterOnScreen()

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			fyne.Do(a.Quit)
		case <-done:
		}
	}()

	w.ShowAndRun()
	close(done)

	if err := ctx.Err(); err != nil {
		return comm.DeviceHandle{}, false, err
	}
	if !sel.picked {
		return comm.DeviceHandle{}, false, nil
	}
	return sel.chosen, true, nil
}
