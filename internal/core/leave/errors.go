package leave

import "errors"

// ErrInvalidResumo は集計が inss + ap_invalidez <= total を満たさない場合に返却されます。
var ErrInvalidResumo = errors.New("leave: resumo violates inss + ap_invalidez <= total")
