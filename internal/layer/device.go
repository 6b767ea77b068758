package layer

// DeviceType represents the hardware device used for computation.
type DeviceType int

const (
	CPU DeviceType = iota
)

func (t DeviceType) String() string {
	switch t {
	case CPU:
		return "cpu"
	default:
		return "unknown"
	}
}

// Device describes where tensors live and where kernels run. Models are bound
// to a device at construction and every forward call names the device it expects.
type Device interface {
	Type() DeviceType
	IsAvailable() bool
}

// CPUDevice handles computations on the host CPU.
type CPUDevice struct{}

func (d *CPUDevice) Type() DeviceType  { return CPU }
func (d *CPUDevice) IsAvailable() bool { return true }

// GetDefaultDevice returns the best available device for the current platform.
// Only the host CPU is supported; gonum's BLAS kernels do the batched work.
func GetDefaultDevice() Device {
	return &CPUDevice{}
}
