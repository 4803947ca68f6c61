package param

import "github.com/danmuck/mowerlink/internal/protocol/codec"

// GetCuttingHeightReq asks the mainboard for its cutting heights. It carries
// no data.
type GetCuttingHeightReq struct{}

func (GetCuttingHeightReq) ParamID() ID { return IDGetCuttingHeightReq }

// GetCuttingHeightResp answers GetCuttingHeightReq.
type GetCuttingHeightResp struct {
	ReturnCode           uint8 `yaml:"return_code"`
	DefaultCuttingHeight uint8 `yaml:"default_cutting_height"`
	CurrentCuttingHeight uint8 `yaml:"current_cutting_height"`
	Information          uint8 `yaml:"information"`
}

func (GetCuttingHeightResp) ParamID() ID { return IDGetCuttingHeightResp }

// Field order is the wire contract with deployed firmware.
var getCuttingHeightRespSchema = codec.Struct("GetCuttingHeightResp",
	codec.F("return_code", codec.U8()),
	codec.F("default_cutting_height", codec.U8()),
	codec.F("current_cutting_height", codec.U8()),
	codec.F("information", codec.U8()),
)
