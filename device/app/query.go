// Package app implements the client and server application layer that
// rides on top of the fragment/session transport: the Query/Response
// vocabulary, client registration and message relay, and file/media
// serving.
//
// Grounded on general_use.rs's Query/Response/ServerType enums and on the
// two reference client personalities (client_danylo, client_chen), folded
// here into a single parameterized Client per the component design notes.
package app

import "github.com/danylo37/overlay-mesh/core/node"

// QueryKind distinguishes the application requests a client can send.
type QueryKind uint8

const (
	QueryAskType QueryKind = iota
	QueryRegisterClient
	QueryUnregisterClient
	QueryAskListClients
	QuerySendMessageTo
	QueryAskListFiles
	QueryAskFile
	QueryAskMedia
)

func (k QueryKind) String() string {
	switch k {
	case QueryAskType:
		return "AskType"
	case QueryRegisterClient:
		return "RegisterClient"
	case QueryUnregisterClient:
		return "UnregisterClient"
	case QueryAskListClients:
		return "AskListClients"
	case QuerySendMessageTo:
		return "SendMessageTo"
	case QueryAskListFiles:
		return "AskListFiles"
	case QueryAskFile:
		return "AskFile"
	case QueryAskMedia:
		return "AskMedia"
	default:
		return "Unknown"
	}
}

// Query is one client request. Only the fields relevant to Kind are
// populated; it is serialized whole, the same tagged-union-by-zero-value
// shape core/codec.Packet uses for its own payload union.
type Query struct {
	Kind      QueryKind `json:"kind"`
	ClientID  node.ID   `json:"client_id,omitempty"`
	Message   string    `json:"message,omitempty"`
	FileIndex uint8     `json:"file_index,omitempty"`
	MediaKey  string    `json:"media_key,omitempty"`
}

func AskType() Query                         { return Query{Kind: QueryAskType} }
func RegisterClient(id node.ID) Query        { return Query{Kind: QueryRegisterClient, ClientID: id} }
func UnregisterClient(id node.ID) Query      { return Query{Kind: QueryUnregisterClient, ClientID: id} }
func AskListClients() Query                  { return Query{Kind: QueryAskListClients} }
func SendMessageTo(to node.ID, msg string) Query {
	return Query{Kind: QuerySendMessageTo, ClientID: to, Message: msg}
}
func AskListFiles() Query               { return Query{Kind: QueryAskListFiles} }
func AskFile(index uint8) Query         { return Query{Kind: QueryAskFile, FileIndex: index} }
func AskMedia(key string) Query         { return Query{Kind: QueryAskMedia, MediaKey: key} }

// ServerType is the kind of content/communication a server advertises in
// response to AskType.
type ServerType uint8

const (
	ServerUndefined ServerType = iota
	ServerCommunication
	ServerText
	ServerMedia
)

func (t ServerType) String() string {
	switch t {
	case ServerCommunication:
		return "Communication"
	case ServerText:
		return "Text"
	case ServerMedia:
		return "Media"
	default:
		return "Undefined"
	}
}

// ResponseKind distinguishes the application replies a server can send.
type ResponseKind uint8

const (
	ResponseServerType ResponseKind = iota
	ResponseClientRegistered
	ResponseMessageFrom
	ResponseListClients
	ResponseListFiles
	ResponseFile
	ResponseMedia
	ResponseErr
)

func (k ResponseKind) String() string {
	switch k {
	case ResponseServerType:
		return "ServerType"
	case ResponseClientRegistered:
		return "ClientRegistered"
	case ResponseMessageFrom:
		return "MessageFrom"
	case ResponseListClients:
		return "ListClients"
	case ResponseListFiles:
		return "ListFiles"
	case ResponseFile:
		return "File"
	case ResponseMedia:
		return "Media"
	case ResponseErr:
		return "Err"
	default:
		return "Unknown"
	}
}

// Response is one server reply, shaped the same way as Query.
type Response struct {
	Kind       ResponseKind `json:"kind"`
	ServerType ServerType   `json:"server_type,omitempty"`
	From       node.ID      `json:"from,omitempty"`
	Message    string       `json:"message,omitempty"`
	Clients    []node.ID    `json:"clients,omitempty"`
	Files      []string     `json:"files,omitempty"`
	File       string       `json:"file,omitempty"`
	Media      string       `json:"media,omitempty"`
	Err        string       `json:"err,omitempty"`
}

func TypeResponse(t ServerType) Response        { return Response{Kind: ResponseServerType, ServerType: t} }
func ClientRegistered() Response                { return Response{Kind: ResponseClientRegistered} }
func MessageFrom(from node.ID, msg string) Response {
	return Response{Kind: ResponseMessageFrom, From: from, Message: msg}
}
func ListClients(ids []node.ID) Response  { return Response{Kind: ResponseListClients, Clients: ids} }
func ListFiles(names []string) Response   { return Response{Kind: ResponseListFiles, Files: names} }
func FileResponse(content string) Response { return Response{Kind: ResponseFile, File: content} }
func MediaResponse(content string) Response { return Response{Kind: ResponseMedia, Media: content} }
func ErrResponse(msg string) Response     { return Response{Kind: ResponseErr, Err: msg} }
