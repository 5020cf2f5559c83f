package transport

// The native transport ABI this interface would bind via cgo, documented
// here for reference only — this module ships no cgo and loads no native
// library (spec.md §6):
//
//	IOTC_Initialize2(udp_port int) int
//	IOTC_DeInitialize() int
//	IOTC_Get_Version(version *uint32) int
//	IOTC_Get_SessionID() int
//	IOTC_Connect_ByUID_Parallel(uid *char, session_id int) int
//	IOTC_Connect_Stop_BySID(session_id int) int
//	IOTC_Session_Check(session_id int, info *SInfo) int
//	IOTC_Session_Close(session_id int) int
//	avInitialize(max_channels int) int
//	avDeInitialize() int
//	avClientStart(session_id int, user, pass *char, timeout uint32, chan_id *uint32, svc uint8) int
//	avClientStop(av_chan_id int) int
//	avClientSetMaxBufSize(bytes int) int
//	avSendIOCtrl(av_chan_id int, ctrl_type uint32, data *char, len int) int
//	avRecvIOCtrl(av_chan_id int, ctrl_type *uint32, data *char, max_len, timeout_ms int) int
//	avRecvFrameData2(av_chan_id int, data **char, max_len int, frame_len, frame_no *int,
//	    info *char, info_len int, info_actual_len *int, frame_idx *uint32) int
//
// Library search order: /usr/local/lib/libIOTCAPIs_ALL.{dylib,so}.
