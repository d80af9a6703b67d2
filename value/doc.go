// Package value maps between the solver's native value representations and
// host values. Host values are cty.Value: numbers, bools, strings, sets,
// lists, tuples and objects come from go-cty directly, enumerated-type
// members are carried by the EnumType capsule.
//
// Two external forms are supported. EncodeDZN produces the textual embedding
// used inside model fragments, EncodeJSON and the Plan decoders handle the
// streaming JSON interchange format the driver emits for solutions and reads
// for data files.
//
// Decoding is always type directed: a Schema of declared output variables is
// compiled once into a Plan, and the Plan is applied to every solution record.
package value
